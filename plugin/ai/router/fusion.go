package router

// Fuse combines the three stage score maps into one decision using the
// configured weights, subtracting a penalty from data-requiring intents
// when their data is missing. dataAvailability is in [0,1]: 1 means all
// relevant domains have records.
func Fuse(config *Config, rule, semantic, llm *StageResult, dataAvailability float64) *Decision {
	fused := map[Intent]float64{}
	for _, intent := range intents {
		score := 0.0
		if rule != nil {
			score += config.RuleWeight * rule.Scores[intent]
		}
		if semantic != nil {
			score += config.SemanticWeight * semantic.Scores[intent]
		}
		if llm != nil {
			score += config.LLMWeight * llm.Scores[intent]
		}
		// Aggregation needs data to aggregate; penalize it when the
		// relevant domains are empty.
		if intent == IntentAggregate {
			score -= config.DataPenaltyWeight * (1 - clamp(dataAvailability, 0, 1))
		}
		if score > 0 {
			fused[intent] = clamp(score, 0, 1)
		}
	}

	decision := &Decision{
		Rule:        rule,
		Semantic:    semantic,
		LLM:         llm,
		FusedScores: fused,
	}

	primary, confidence := top(fused)
	if primary == "" {
		// Nothing scored: take the semantic top if it clears its
		// threshold, otherwise default to retrieval. A query is never
		// left unrouted.
		if semantic != nil {
			if intent, score := semantic.Top(); score >= semantic.Threshold && intent != "" {
				primary, confidence = intent, score
			}
		}
		if primary == "" {
			primary, confidence = IntentRetrieval, config.FallbackConfidence
		}
	}

	decision.PrimaryIntent = primary
	decision.Confidence = confidence

	if rule != nil && rule.Mixed {
		decision.IsMixedQuery = true
	}
	decision.Hybrid = IsHybrid(config, fused[IntentAggregate], fused[IntentRetrieval], decision.IsMixedQuery)

	return decision
}

// IsHybrid is the hybrid predicate: mixed queries are always hybrid, and
// so are queries where both the aggregate and retrieval scores clear the
// hybrid threshold on their own.
func IsHybrid(config *Config, aggregateScore, retrievalScore float64, mixed bool) bool {
	if mixed {
		return true
	}
	return aggregateScore > config.HybridThreshold && retrievalScore > config.HybridThreshold
}

func top(scores map[Intent]float64) (Intent, float64) {
	var best Intent
	bestScore := 0.0
	for _, intent := range intents {
		if score, ok := scores[intent]; ok && score > bestScore {
			best, bestScore = intent, score
		}
	}
	return best, bestScore
}
