package router

import (
	"regexp"
	"strings"

	"github.com/jeffreyouni/life-butler/plugin/ai"
)

// keywordRule is one weighted keyword. Keywords are plain data: scoring is
// a pure fold over the table.
type keywordRule struct {
	keyword string
	weight  float64
	domains []string
}

// mixedPatterns pairs a quantity-ask pattern with an explanation/advice-ask
// pattern. A query matching both in one sentence is a mixed query.
type mixedPatterns struct {
	quantity    *regexp.Regexp
	explanation *regexp.Regexp
}

// RuleStage is the always-on first classifier stage: language detection,
// variant expansion and weighted keyword scoring.
type RuleStage struct {
	config *Config

	// language → intent → rules
	keywords map[string]map[Intent][]keywordRule
	mixed    map[string]mixedPatterns

	// phrase translations expand a query into a counterpart in the
	// other language so rules match regardless of input language.
	// Ordered longest phrase first so "多少钱" is rewritten before "多少"
	// gets a chance to split it.
	zhToEn []phrasePair
	enToZh []phrasePair
}

// phrasePair is one phrase translation.
type phrasePair struct {
	phrase      string
	replacement string
}

// NewRuleStage creates the rule stage with the built-in keyword tables.
func NewRuleStage(config *Config) *RuleStage {
	return &RuleStage{
		config: config,
		keywords: map[string]map[Intent][]keywordRule{
			"en": {
				IntentAggregate: {
					{"how much", 2.0, []string{"finance"}},
					{"how many", 2.0, nil},
					{"total", 1.5, nil},
					{"sum", 1.5, nil},
					{"average", 1.5, nil},
					{"count", 1.2, nil},
					{"spend", 1.2, []string{"finance"}},
					{"spent", 1.2, []string{"finance"}},
					{"cost", 1.0, []string{"finance"}},
					{"trend", 1.2, nil},
					{"per day", 1.0, nil},
				},
				IntentRetrieval: {
					{"why", 2.0, nil},
					{"explain", 1.5, nil},
					{"should i", 1.5, nil},
					{"what should", 1.5, nil},
					{"how can", 1.5, nil},
					{"advice", 1.5, nil},
					{"recommend", 1.5, nil},
					{"improve", 1.2, nil},
					{"tell me about", 1.2, nil},
					{"feel", 1.0, []string{"health", "journals"}},
					{"tired", 1.0, []string{"health"}},
				},
				IntentReminder: {
					{"remind", 2.0, []string{"events"}},
					{"reminder", 2.0, []string{"events"}},
					{"don't forget", 1.5, []string{"events"}},
					{"schedule", 1.2, []string{"events"}},
					{"appointment", 1.2, []string{"events"}},
				},
			},
			"zh": {
				IntentAggregate: {
					{"多少", 2.0, []string{"finance"}},
					{"几次", 1.5, nil},
					{"一共", 1.5, nil},
					{"总共", 1.5, nil},
					{"总计", 1.5, nil},
					{"平均", 1.5, nil},
					{"统计", 1.5, nil},
					{"花了", 1.5, []string{"finance"}},
					{"花费", 1.2, []string{"finance"}},
					{"趋势", 1.2, nil},
				},
				IntentRetrieval: {
					{"为什么", 2.0, nil},
					{"为啥", 1.8, nil},
					{"怎么办", 1.5, nil},
					{"建议", 1.5, nil},
					{"如何", 1.2, nil},
					{"怎样", 1.2, nil},
					{"改善", 1.2, nil},
					{"说说", 1.2, nil},
					{"感觉", 1.0, []string{"health", "journals"}},
					{"累", 1.0, []string{"health"}},
				},
				IntentReminder: {
					{"提醒", 2.0, []string{"events"}},
					{"别忘", 1.5, []string{"events"}},
					{"日程", 1.2, []string{"events"}},
					{"预约", 1.2, []string{"events"}},
				},
			},
		},
		mixed: map[string]mixedPatterns{
			"en": {
				quantity:    regexp.MustCompile(`(?i)\b(how much|how many|total|average|sum|count)\b`),
				explanation: regexp.MustCompile(`(?i)\b(why|should|improve|advice|recommend|suggest)\b`),
			},
			"zh": {
				quantity:    regexp.MustCompile(`(多少|几次|平均|总共|一共|统计)`),
				explanation: regexp.MustCompile(`(为什么|为啥|建议|怎么|如何|改善)`),
			},
		},
		zhToEn: []phrasePair{
			{"多少钱", "how much money"},
			{"为什么", "why"},
			{"多少", "how much"},
			{"平均", "average"},
			{"一共", "total"},
			{"总共", "total"},
			{"几次", "how many times"},
			{"建议", "advice"},
			{"提醒", "remind"},
			{"改善", "improve"},
			{"花", "spend"},
			{"吃", "food"},
			{"累", "tired"},
		},
		enToZh: []phrasePair{
			{"how much", "多少"},
			{"average", "平均"},
			{"improve", "改善"},
			{"advice", "建议"},
			{"remind", "提醒"},
			{"total", "总共"},
			{"spent", "花"},
			{"spend", "花"},
			{"tired", "累"},
			{"food", "吃"},
			{"why", "为什么"},
		},
	}
}

// Classify scores the query against the keyword tables of every variant.
func (s *RuleStage) Classify(query string) *StageResult {
	language := ai.DetectLanguage(query)
	variants := s.expandVariants(query, language)

	raw := map[Intent]float64{}
	for _, intent := range intents {
		for _, table := range s.keywords {
			for _, rule := range table[intent] {
				for _, variant := range variants {
					if strings.Contains(variant, rule.keyword) {
						raw[intent] += rule.weight
						break // count each keyword once across variants
					}
				}
			}
		}
	}

	scores := map[Intent]float64{}
	for intent, r := range raw {
		scores[intent] = clamp(r/s.config.RuleScoreDivisor, 0, 1)
	}

	result := &StageResult{
		Scores:    scores,
		RawScores: raw,
		Language:  language,
		Variants:  variants,
	}
	_, top := result.Top()
	result.HighConfidence = top > s.config.HighConfidenceThreshold
	result.Mixed = s.isMixed(query, language, raw)
	result.Margin = margin(scores)
	return result
}

// expandVariants returns the lowercased query plus a lightweight
// phrase-translated counterpart in the other language.
func (s *RuleStage) expandVariants(query, language string) []string {
	lower := strings.ToLower(strings.TrimSpace(query))
	variants := []string{lower}

	table := s.enToZh
	if language == "zh" {
		table = s.zhToEn
	}
	translated := lower
	for _, pair := range table {
		translated = strings.ReplaceAll(translated, pair.phrase, " "+pair.replacement+" ")
	}
	if translated != lower {
		variants = append(variants, translated)
	}
	return variants
}

// isMixed reports whether the query asks for a quantity and an
// explanation at once.
func (s *RuleStage) isMixed(query, language string, raw map[Intent]float64) bool {
	if patterns, ok := s.mixed[language]; ok {
		if patterns.quantity.MatchString(query) && patterns.explanation.MatchString(query) {
			return true
		}
	}
	return raw[IntentAggregate] > s.config.MixedRawScore && raw[IntentRetrieval] > s.config.MixedRawScore
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// margin returns the gap between the best and second-best score.
func margin(scores map[Intent]float64) float64 {
	best, second := 0.0, 0.0
	for _, score := range scores {
		if score > best {
			best, second = score, best
		} else if score > second {
			second = score
		}
	}
	return best - second
}
