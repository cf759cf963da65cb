package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeffreyouni/life-butler/plugin/ai"
)

// LLMStage is the conditional third stage. It only runs when the rule
// stage had no high-confidence match and the semantic stage missed its
// threshold; that short-circuit is a cost saving, not a quality choice.
type LLMStage struct {
	chat ai.ChatCompleter
}

// NewLLMStage creates the LLM stage. A nil chat completer selects the
// deterministic keyword fallback.
func NewLLMStage(chat ai.ChatCompleter) *LLMStage {
	return &LLMStage{chat: chat}
}

// classificationPrompt asks for a strict-JSON intent classification with
// supporting slots.
const classificationPrompt = `You classify personal-data questions into one intent.

Intents:
- aggregate: the user wants a computed number (sum, average, count, trend)
- retrieval: the user wants an explanation, search or advice over their records
- reminder: the user wants to be reminded of something

Question: %s

Reply with JSON only:
{"intent": "...", "confidence": 0.0, "operation": "...", "domain": "...", "timeframe": "..."}`

type llmResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Operation  string  `json:"operation"`
	Domain     string  `json:"domain"`
	Timeframe  string  `json:"timeframe"`
}

// Classify asks the LLM for a classification, falling back to keyword
// heuristics when no client is configured or the call fails.
func (s *LLMStage) Classify(ctx context.Context, query string) *StageResult {
	if s.chat == nil {
		return s.heuristic(query)
	}

	prompt := fmt.Sprintf(classificationPrompt, query)
	response, err := s.chat.Chat(ctx, []ai.Message{ai.UserMessage(prompt)}, 0.1)
	if err != nil {
		return s.heuristic(query)
	}

	parsed, err := parseClassification(response)
	if err != nil {
		return s.heuristic(query)
	}

	intent := Intent(parsed.Intent)
	switch intent {
	case IntentAggregate, IntentRetrieval, IntentReminder:
	default:
		return s.heuristic(query)
	}

	return &StageResult{
		Scores: map[Intent]float64{intent: clamp(parsed.Confidence, 0, 1)},
		Slots: map[string]string{
			"operation": parsed.Operation,
			"domain":    parsed.Domain,
			"timeframe": parsed.Timeframe,
		},
	}
}

// heuristic is the deterministic fallback classification.
func (s *LLMStage) heuristic(query string) *StageResult {
	lower := strings.ToLower(query)

	scores := map[Intent]float64{}
	switch {
	case containsAny(lower, "remind", "提醒", "别忘"):
		scores[IntentReminder] = 0.6
	case containsAny(lower, "how much", "how many", "total", "average", "多少", "几次", "平均", "总共"):
		scores[IntentAggregate] = 0.6
	case containsAny(lower, "why", "should", "advice", "为什么", "建议", "怎么"):
		scores[IntentRetrieval] = 0.6
	default:
		scores[IntentRetrieval] = 0.4
	}
	return &StageResult{Scores: scores, Slots: map[string]string{}}
}

// parseClassification parses the JSON response, tolerating markdown fences.
func parseClassification(response string) (*llmResponse, error) {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		var jsonLines []string
		inJSON := false
		for _, line := range strings.Split(response, "\n") {
			if strings.HasPrefix(line, "```") {
				inJSON = !inJSON
				continue
			}
			if inJSON {
				jsonLines = append(jsonLines, line)
			}
		}
		response = strings.Join(jsonLines, "\n")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}
	return &parsed, nil
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
