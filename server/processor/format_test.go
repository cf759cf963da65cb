package processor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeffreyouni/life-butler/plugin/ai/rag"
	"github.com/jeffreyouni/life-butler/plugin/ai/router"
	"github.com/jeffreyouni/life-butler/server/aggregator"
)

func TestResponseText_Calculation(t *testing.T) {
	result := &CalculationResult{
		Calculations: map[string]float64{"Total": 120.50, "Average": 40.17},
		Summary:      "You spent 120.50 this month.",
		Points: []aggregator.DataPoint{
			{ID: "f1", Value: 35.50, Description: "takeout (2025-03-01)", Timestamp: time.Now()},
		},
	}

	text := ResponseText(result)
	assert.Contains(t, text, "## Results")
	assert.Contains(t, text, "**Total**: 120.50")
	assert.Contains(t, text, "**Average**: 40.17")
	assert.Contains(t, text, "You spent 120.50 this month.")
	assert.Contains(t, text, "### Sources")
	assert.Contains(t, text, "takeout (2025-03-01): 35.50")
}

func TestResponseText_CalculationTruncatesSources(t *testing.T) {
	result := &CalculationResult{Calculations: map[string]float64{"Count": 15}}
	for i := 0; i < 15; i++ {
		result.Points = append(result.Points, aggregator.DataPoint{
			ID: "p", Value: 1, Description: "entry",
		})
	}

	text := ResponseText(result)
	assert.Contains(t, text, "... and 5 more")
	assert.Equal(t, 10, strings.Count(text, "- entry"))
}

func TestResponseText_CalculationCategoriesAndTrend(t *testing.T) {
	result := &CalculationResult{
		Calculations: map[string]float64{"Total": 100},
		Categories: []aggregator.CategoryTotal{
			{Category: "takeout", Total: 60.50, Count: 2},
		},
		Trend: &aggregator.Trend{
			Direction:     "increasing",
			ChangePercent: 42.5,
			Points:        []aggregator.DataPoint{{ID: "f1"}},
		},
	}

	text := ResponseText(result)
	assert.Contains(t, text, "takeout: 60.50 (2 records)")
	assert.Contains(t, text, "Trend: increasing (+42.5%)")
}

func TestResponseText_Retrieval(t *testing.T) {
	result := &RetrievalResult{
		Text: "You slept little this week.",
		Sources: []*rag.SearchResult{
			{ChunkText: "slept 5 hours", Score: 0.82},
		},
		GenerationType: router.GenAnalytical,
	}

	text := ResponseText(result)
	assert.True(t, strings.HasPrefix(text, "You slept little this week."))
	assert.Contains(t, text, "### Sources")
	assert.Contains(t, text, "slept 5 hours (0.82)")
	assert.NotContains(t, text, "### Advice")
}

func TestResponseText_RetrievalWithDistinctAdvice(t *testing.T) {
	result := &RetrievalResult{
		Text:   "You eat out a lot.",
		Advice: "Try meal prepping on Sundays.",
	}

	text := ResponseText(result)
	assert.Contains(t, text, "### Advice")
	assert.Contains(t, text, "Try meal prepping on Sundays.")
}

func TestResponseText_Hybrid(t *testing.T) {
	result := &HybridResult{
		Synthesis: "You spent 120.50, mostly on stressful days.",
		Calculation: &CalculationResult{
			Calculations: map[string]float64{"Total": 120.50},
		},
		Retrieval: &RetrievalResult{
			Sources: []*rag.SearchResult{{ChunkText: "ordered takeout", Score: 0.9}},
		},
	}

	text := ResponseText(result)
	assert.True(t, strings.HasPrefix(text, "You spent 120.50"))
	assert.Contains(t, text, "## Numbers")
	assert.Contains(t, text, "**Total**: 120.50")
	assert.Contains(t, text, "ordered takeout (0.90)")
}
