package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeffreyouni/life-butler/plugin/ai"
	"github.com/jeffreyouni/life-butler/plugin/ai/rag"
	"github.com/jeffreyouni/life-butler/plugin/ai/router"
	"github.com/jeffreyouni/life-butler/server/aggregator"
	"github.com/jeffreyouni/life-butler/server/internal/observability"
	"github.com/jeffreyouni/life-butler/server/queryengine"
	"github.com/jeffreyouni/life-butler/store"
)

// calculationConfidence is fixed high: aggregation is exact.
const calculationConfidence = 0.9

// defaultMinScore filters weak similarity matches out of retrieval.
const defaultMinScore = 0.3

// Processor executes the routed processing path.
type Processor struct {
	aggregator *aggregator.Aggregator
	pipeline   *rag.Pipeline
}

// New creates a Processor.
func New(agg *aggregator.Aggregator, pipeline *rag.Pipeline) *Processor {
	return &Processor{
		aggregator: agg,
		pipeline:   pipeline,
	}
}

// Process runs the routed path and always returns a result: any failure
// degrades to an apologetic retrieval result with confidence 0 instead of
// propagating to the caller.
func (p *Processor) Process(ctx context.Context, query string, routing *router.Routing) ProcessingResult {
	start := time.Now()

	var result ProcessingResult
	var err error
	switch routing.Path {
	case router.PathCalculation:
		result, err = p.processCalculation(ctx, query, routing.Calculation)
	case router.PathHybrid:
		result, err = p.processHybrid(ctx, query, routing)
	default:
		result, err = p.processRetrieval(ctx, query, routing.Retrieval)
	}

	if err != nil {
		// The request-scoped logger carries the request id the engine
		// attached, so the degradation is correlatable with the query.
		observability.FromContext(ctx).Logger.Warn("processing failed, degrading to apology",
			"query", truncate(query, 50),
			"path", routing.Path,
			"error", err)
		result = apology(query)
	}

	setMeta(result, query, time.Since(start))
	return result
}

func setMeta(result ProcessingResult, query string, elapsed time.Duration) {
	switch r := result.(type) {
	case *CalculationResult:
		r.Query, r.ProcessingTime = query, elapsed
	case *RetrievalResult:
		r.Query, r.ProcessingTime = query, elapsed
	case *HybridResult:
		r.Query, r.ProcessingTime = query, elapsed
	}
}

// apology is the terminal degradation: never fail a user query.
func apology(query string) ProcessingResult {
	text := "Sorry, I couldn't process that question right now. Please try again."
	if ai.DetectLanguage(query) == "zh" {
		text = "抱歉，这个问题暂时处理不了，请稍后再试。"
	}
	return &RetrievalResult{
		Meta:           Meta{Confidence: 0},
		Text:           text,
		GenerationType: router.GenFactual,
	}
}

// processCalculation runs each requested aggregation, merges data points
// and asks the RAG answer path to narrate the numbers.
func (p *Processor) processCalculation(ctx context.Context, query string, specs *router.CalculationSpecs) (*CalculationResult, error) {
	if specs == nil {
		return nil, fmt.Errorf("calculation path without calculation specs")
	}

	domains := toDomains(specs.Domains)
	result := &CalculationResult{
		Meta:         Meta{Confidence: calculationConfidence},
		Calculations: map[string]float64{},
	}

	seen := map[string]bool{}
	merge := func(points []aggregator.DataPoint) {
		for _, point := range points {
			if seen[point.ID] {
				continue
			}
			seen[point.ID] = true
			result.Points = append(result.Points, point)
		}
	}

	for _, op := range specs.Operations {
		switch op {
		case router.OpSum:
			agg, err := p.aggregator.CalculateSum(ctx, domains, specs.Filters, specs.TimeRange)
			if err != nil {
				return nil, err
			}
			result.Calculations["Total"] = agg.Value
			merge(agg.Points)
		case router.OpAverage:
			agg, err := p.aggregator.CalculateAverage(ctx, domains, specs.Filters, specs.TimeRange)
			if err != nil {
				return nil, err
			}
			result.Calculations["Average"] = agg.Value
			merge(agg.Points)
		case router.OpCount:
			agg, err := p.aggregator.CalculateCount(ctx, domains, specs.Filters, specs.TimeRange)
			if err != nil {
				return nil, err
			}
			result.Calculations["Count"] = agg.Value
			merge(agg.Points)
		case router.OpTrend:
			trend, err := p.aggregator.CalculateTrends(ctx, domains, specs.Filters, specs.TimeRange)
			if err != nil {
				return nil, err
			}
			result.Trend = trend
			result.Calculations["Trend %"] = trend.ChangePercent
			merge(trend.Points)
		case router.OpByCategory:
			categories, err := p.aggregator.CalculateSpendingByCategory(ctx, specs.Filters, specs.TimeRange)
			if err != nil {
				return nil, err
			}
			result.Categories = categories
		case router.OpDailyAverage:
			averages, err := p.aggregator.CalculateDailyAverages(ctx, domains, aggregator.BucketDay, specs.Filters, specs.TimeRange)
			if err != nil {
				return nil, err
			}
			for _, avg := range averages {
				result.Calculations["Avg "+avg.Bucket] = avg.Average
			}
		}
	}

	sort.Slice(result.Points, func(i, j int) bool {
		return result.Points[i].Timestamp.Before(result.Points[j].Timestamp)
	})

	result.Summary = p.narrateCalculation(ctx, query, specs, result)
	return result, nil
}

// narrateCalculation asks the answer path to explain the numbers, falling
// back to a deterministic bullet summary.
func (p *Processor) narrateCalculation(ctx context.Context, query string, specs *router.CalculationSpecs, result *CalculationResult) string {
	bullets := bulletSummary(result)

	answer, sources, err := p.pipeline.Answer(ctx, query, searchFilters(specs.Domains, specs.TimeRange), rag.AnswerOptions{
		Limit:              3,
		MinScore:           defaultMinScore,
		CalculationSummary: bullets,
		Temperature:        0.3,
	})
	if err != nil || len(sources) == 0 || strings.TrimSpace(answer) == "" {
		return bullets
	}
	return answer
}

// bulletSummary is the deterministic rendering of a calculation.
func bulletSummary(result *CalculationResult) string {
	var sb strings.Builder
	labels := make([]string, 0, len(result.Calculations))
	for label := range result.Calculations {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&sb, "- %s: %.2f\n", label, result.Calculations[label])
	}
	for _, ct := range result.Categories {
		fmt.Fprintf(&sb, "- %s: %.2f\n", ct.Category, ct.Total)
	}
	fmt.Fprintf(&sb, "- Records: %d\n", len(result.Points))
	return strings.TrimSpace(sb.String())
}

// processRetrieval searches with a budget derived from the context needs
// and answers with the selected generation type.
func (p *Processor) processRetrieval(ctx context.Context, query string, specs *router.RetrievalSpecs) (*RetrievalResult, error) {
	if specs == nil {
		return nil, fmt.Errorf("retrieval path without retrieval specs")
	}

	text, sources, err := p.pipeline.Answer(ctx, query, searchFilters(specs.Domains, specs.TimeRange), rag.AnswerOptions{
		Limit:    specs.ContextNeeds.ResultBudget(),
		MinScore: defaultMinScore,
		Template: templateFor(specs.GenerationType),
	})
	if err != nil {
		return nil, err
	}

	result := &RetrievalResult{
		Meta:           Meta{Confidence: meanScore(sources)},
		Text:           text,
		Sources:        sources,
		GenerationType: specs.GenerationType,
	}
	if specs.GenerationType == router.GenAdvisory {
		result.Advice = text
	}
	return result, nil
}

// processHybrid runs calculation and retrieval concurrently: the two
// tasks share no mutable state and are read-only against storage.
func (p *Processor) processHybrid(ctx context.Context, query string, routing *router.Routing) (*HybridResult, error) {
	if routing.Calculation == nil || routing.Retrieval == nil {
		return nil, fmt.Errorf("hybrid path requires both spec kinds")
	}

	var calculation *CalculationResult
	var retrieval *RetrievalResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		calculation, err = p.processCalculation(gctx, query, routing.Calculation)
		return err
	})
	g.Go(func() error {
		var err error
		retrieval, err = p.processRetrieval(gctx, query, routing.Retrieval)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &HybridResult{
		Meta:        Meta{Confidence: (calculation.Confidence + retrieval.Confidence) / 2},
		Calculation: calculation,
		Retrieval:   retrieval,
	}
	result.Synthesis = p.synthesize(ctx, query, calculation, retrieval)
	return result, nil
}

// synthesize generates the combined narrative, falling back to a
// rule-based synthesis when generation fails.
func (p *Processor) synthesize(ctx context.Context, query string, calculation *CalculationResult, retrieval *RetrievalResult) string {
	summary := bulletSummary(calculation)

	text, sources, err := p.pipeline.Answer(ctx, query, rag.SearchFilters{}, rag.AnswerOptions{
		Limit:              5,
		MinScore:           defaultMinScore,
		CalculationSummary: summary + "\n\nRelated notes:\n" + retrieval.Text,
		Temperature:        0.5,
	})
	if err == nil && len(sources) > 0 && strings.TrimSpace(text) != "" {
		return text
	}

	// Rule-based synthesis: lead with the primary calculation, then the
	// retrieval text, then any advice.
	var sb strings.Builder
	if label, value, ok := primaryCalculation(calculation); ok {
		fmt.Fprintf(&sb, "%s: %.2f. ", label, value)
	}
	sb.WriteString(strings.TrimSpace(retrieval.Text))
	if retrieval.Advice != "" && retrieval.Advice != retrieval.Text {
		sb.WriteString(" ")
		sb.WriteString(strings.TrimSpace(retrieval.Advice))
	}
	return strings.TrimSpace(sb.String())
}

// primaryCalculation picks the headline number: Total wins, then Average,
// then Count.
func primaryCalculation(result *CalculationResult) (string, float64, bool) {
	for _, label := range []string{"Total", "Average", "Count"} {
		if value, ok := result.Calculations[label]; ok {
			return label, value, true
		}
	}
	for label, value := range result.Calculations {
		return label, value, true
	}
	return "", 0, false
}

func searchFilters(domains []string, timeRange *queryengine.TimeRange) rag.SearchFilters {
	filters := rag.SearchFilters{ObjectTypes: domains}
	if timeRange != nil {
		filters.Start, filters.End = &timeRange.Start, &timeRange.End
	}
	return filters
}

func meanScore(sources []*rag.SearchResult) float64 {
	if len(sources) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range sources {
		sum += s.Score
	}
	return sum / float64(len(sources))
}

func toDomains(names []string) []store.Domain {
	domains := make([]store.Domain, 0, len(names))
	for _, name := range names {
		domains = append(domains, store.Domain(name))
	}
	return domains
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
