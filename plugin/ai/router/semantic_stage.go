package router

import (
	"strings"
	"unicode"
)

// SemanticStage is the always-on second stage: word-overlap similarity
// against labeled example utterances. No model call, so it is free to run
// on every query.
type SemanticStage struct {
	config   *Config
	examples map[Intent][]string
}

// NewSemanticStage creates the semantic stage with the built-in examples.
func NewSemanticStage(config *Config) *SemanticStage {
	return &SemanticStage{
		config: config,
		examples: map[Intent][]string{
			IntentAggregate: {
				"how much did i spend this month",
				"what is my total spending on food",
				"how many times did i eat out last week",
				"what is my average daily calorie intake",
				"show me my spending trend",
				"这个月我花了多少钱",
				"我这周平均睡了几个小时",
				"我一共吃了几次外卖",
			},
			IntentRetrieval: {
				"why am i always tired",
				"what did i write about work last week",
				"how can i improve my sleep",
				"tell me about my mood lately",
				"what should i eat less of",
				"为什么我最近总是很累",
				"我最近的心情怎么样",
				"怎样改善我的睡眠",
			},
			IntentReminder: {
				"remind me to drink water every day",
				"set a reminder for my appointment tomorrow",
				"don't let me forget the meeting",
				"提醒我明天开会",
				"别忘了提醒我买牛奶",
			},
		},
	}
}

// Classify scores the query by its best-matching example per intent.
func (s *SemanticStage) Classify(query string) *StageResult {
	queryTokens := semanticTokens(query)

	scores := map[Intent]float64{}
	for intent, examples := range s.examples {
		best := 0.0
		for _, example := range examples {
			if sim := jaccard(queryTokens, semanticTokens(example)); sim > best {
				best = sim
			}
		}
		scores[intent] = best
	}

	result := &StageResult{
		Scores:    scores,
		Threshold: s.Threshold(len(queryTokens)),
		Margin:    margin(scores),
	}
	return result
}

// Threshold is the dynamic acceptance bar: longer queries dilute word
// overlap, so the bar drops with length.
func (s *SemanticStage) Threshold(wordCount int) float64 {
	threshold := s.config.SemanticBase - float64(wordCount-5)*s.config.SemanticLenAdjust
	return clamp(threshold, s.config.SemanticMin, s.config.SemanticMax)
}

// Accepts reports whether the stage's top score clears its threshold.
func (s *SemanticStage) Accepts(result *StageResult) bool {
	_, top := result.Top()
	return top >= result.Threshold
}

// jaccard is the word-overlap similarity of two token sets.
func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := map[string]bool{}
	for _, t := range a {
		setA[t] = true
	}
	setB := map[string]bool{}
	for _, t := range b {
		setB[t] = true
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// semanticTokens lowercases and splits text into words; each CJK rune is
// its own token so Chinese queries overlap at the character level.
func semanticTokens(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
