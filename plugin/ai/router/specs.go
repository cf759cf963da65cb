package router

import (
	"regexp"
	"strings"

	"github.com/jeffreyouni/life-butler/server/queryengine"
)

// Explanatory-question patterns select narrative generation over factual.
var narrativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwhy (am|do|did|is|are) i\b`),
	regexp.MustCompile(`(?i)\bwhy (am|do) i always\b`),
	regexp.MustCompile(`为什么我`),
	regexp.MustCompile(`我为什么`),
}

// BuildRouting turns a fused decision into an executable routing.
// The specs required by the chosen path are always populated.
func BuildRouting(decision *Decision, query string, qc *queryengine.QueryContext) *Routing {
	routing := &Routing{
		Confidence: decision.Confidence,
		Decision:   decision,
	}

	switch {
	case decision.Hybrid:
		routing.Path = PathHybrid
		routing.Calculation = buildCalculationSpecs(query, qc)
		routing.Retrieval = buildRetrievalSpecs(query, qc)
	case decision.PrimaryIntent == IntentAggregate:
		routing.Path = PathCalculation
		routing.Calculation = buildCalculationSpecs(query, qc)
	default:
		// Retrieval and reminder intents both read and explain.
		routing.Path = PathRetrieval
		routing.Retrieval = buildRetrievalSpecs(query, qc)
	}
	return routing
}

func buildCalculationSpecs(query string, qc *queryengine.QueryContext) *CalculationSpecs {
	lower := strings.ToLower(query)

	var operations []CalculationOperation
	if containsAny(lower, "average", "平均", "per day", "每天") {
		operations = append(operations, OpAverage)
	}
	if containsAny(lower, "how many", "count", "times", "几次", "多少次", "统计次数") {
		operations = append(operations, OpCount)
	}
	if containsAny(lower, "trend", "趋势", "变化") {
		operations = append(operations, OpTrend)
	}
	if containsAny(lower, "by category", "per category", "按分类", "分类") {
		operations = append(operations, OpByCategory)
	}
	if len(operations) == 0 {
		operations = append(operations, OpSum)
	}

	specs := &CalculationSpecs{
		Operations: operations,
		Filters:    map[string]string{},
	}
	if qc != nil {
		for k, v := range qc.Filters {
			specs.Filters[k] = v
		}
		specs.TimeRange = qc.TimeRange
		specs.Domains = qc.TargetDomains
	}
	// Spending questions aggregate money: expenses only, finance only,
	// even when the query also names food or another domain.
	if containsAny(lower, "spend", "spent", "cost", "花", "消费", "支出") {
		specs.Filters["type"] = "expense"
		specs.Domains = []string{"finance"}
	}
	if containsAny(lower, "daily", "每天", "每日") {
		specs.GroupBy = append(specs.GroupBy, "day")
	}
	return specs
}

func buildRetrievalSpecs(query string, qc *queryengine.QueryContext) *RetrievalSpecs {
	lower := strings.ToLower(query)

	specs := &RetrievalSpecs{
		ContextNeeds:   contextNeedsFor(lower),
		GenerationType: generationTypeFor(query, lower),
	}
	if qc != nil {
		specs.Keywords = qc.Keywords
		specs.Domains = qc.TargetDomains
		specs.TimeRange = qc.TimeRange
	}
	if len(specs.Keywords) == 0 {
		specs.Keywords = strings.Fields(lower)
	}
	return specs
}

func contextNeedsFor(lower string) ContextNeeds {
	switch {
	case containsAny(lower, "compare", "compared", "vs", "对比", "比较"):
		return ContextComparative
	case containsAny(lower, "history", "over time", "past", "过去", "历史", "一直"):
		return ContextHistorical
	case containsAny(lower, "everything", "all my", "detail", "详细", "所有"):
		return ContextExtensive
	case len(lower) < 20:
		return ContextMinimal
	default:
		return ContextModerate
	}
}

func generationTypeFor(query, lower string) GenerationType {
	for _, pattern := range narrativePatterns {
		if pattern.MatchString(query) {
			return GenNarrative
		}
	}
	switch {
	case containsAny(lower, "should", "advice", "recommend", "improve", "建议", "改善", "怎么办"):
		return GenAdvisory
	case containsAny(lower, "summarize", "summary", "总结", "概括"):
		return GenSummary
	case containsAny(lower, "analyze", "analysis", "why", "分析", "为什么"):
		return GenAnalytical
	default:
		return GenFactual
	}
}
