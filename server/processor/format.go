package processor

import (
	"fmt"
	"sort"
	"strings"
)

// ResponseText renders a result as Markdown-like text for the
// presentation layer. The switch is exhaustive over the result kinds.
func ResponseText(result ProcessingResult) string {
	switch r := result.(type) {
	case *CalculationResult:
		return formatCalculation(r)
	case *RetrievalResult:
		return formatRetrieval(r)
	case *HybridResult:
		return formatHybrid(r)
	default:
		// Unreachable while the sum type stays closed.
		return ""
	}
}

func formatCalculation(r *CalculationResult) string {
	var sb strings.Builder
	sb.WriteString("## Results\n\n")

	labels := make([]string, 0, len(r.Calculations))
	for label := range r.Calculations {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&sb, "- **%s**: %.2f\n", label, r.Calculations[label])
	}

	for _, ct := range r.Categories {
		fmt.Fprintf(&sb, "- %s: %.2f (%d records)\n", ct.Category, ct.Total, ct.Count)
	}
	if r.Trend != nil && len(r.Trend.Points) > 0 {
		fmt.Fprintf(&sb, "- Trend: %s (%+.1f%%)\n", r.Trend.Direction, r.Trend.ChangePercent)
	}

	if r.Summary != "" {
		sb.WriteString("\n")
		sb.WriteString(r.Summary)
		sb.WriteString("\n")
	}
	if len(r.Points) > 0 {
		sb.WriteString("\n### Sources\n\n")
		for i, p := range r.Points {
			if i >= 10 {
				fmt.Fprintf(&sb, "- ... and %d more\n", len(r.Points)-i)
				break
			}
			fmt.Fprintf(&sb, "- %s: %.2f\n", p.Description, p.Value)
		}
	}
	return strings.TrimSpace(sb.String())
}

func formatRetrieval(r *RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString(r.Text)
	if r.Advice != "" && r.Advice != r.Text {
		sb.WriteString("\n\n### Advice\n\n")
		sb.WriteString(r.Advice)
	}
	if len(r.Sources) > 0 {
		sb.WriteString("\n\n### Sources\n\n")
		for _, s := range r.Sources {
			fmt.Fprintf(&sb, "- %s (%.2f)\n", strings.TrimSpace(s.ChunkText), s.Score)
		}
	}
	return strings.TrimSpace(sb.String())
}

func formatHybrid(r *HybridResult) string {
	var sb strings.Builder
	if r.Synthesis != "" {
		sb.WriteString(r.Synthesis)
		sb.WriteString("\n")
	}
	if r.Calculation != nil {
		sb.WriteString("\n## Numbers\n\n")
		labels := make([]string, 0, len(r.Calculation.Calculations))
		for label := range r.Calculation.Calculations {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(&sb, "- **%s**: %.2f\n", label, r.Calculation.Calculations[label])
		}
	}
	if r.Retrieval != nil && len(r.Retrieval.Sources) > 0 {
		sb.WriteString("\n### Sources\n\n")
		for _, s := range r.Retrieval.Sources {
			fmt.Fprintf(&sb, "- %s (%.2f)\n", strings.TrimSpace(s.ChunkText), s.Score)
		}
	}
	return strings.TrimSpace(sb.String())
}
