package swarm

import "strings"

// Strategy is a named decomposition heuristic (spec §4.7).
type Strategy string

const (
	StrategyFileBased     Strategy = "file-based"
	StrategyRiskBased     Strategy = "risk-based"
	StrategyFeatureBased  Strategy = "feature-based"
	StrategyResearchBased Strategy = "research-based"
)

// priorityOrder is the fixed tie-break order (spec §4.7): file-based wins
// ties, then risk-based, then feature-based, then research-based.
var priorityOrder = []Strategy{StrategyFileBased, StrategyRiskBased, StrategyFeatureBased, StrategyResearchBased}

// keywordWeights is the token-class matching table: task text is scanned
// for each keyword and its weight accumulates onto the owning strategy.
var keywordWeights = map[Strategy]map[string]float64{
	StrategyFileBased: {
		"file": 2, "files": 2, "module": 1.5, "package": 1.5, "directory": 1, "rename": 1, "move": 1,
	},
	StrategyRiskBased: {
		"security": 2.5, "migration": 2, "breaking": 2, "risk": 2, "rollback": 1.5, "compliance": 1.5,
		"production": 1, "incident": 2,
	},
	StrategyFeatureBased: {
		"feature": 2.5, "endpoint": 1.5, "ui": 1.5, "workflow": 1, "user": 1, "flow": 1, "add": 1,
	},
	StrategyResearchBased: {
		"research": 2.5, "investigate": 2, "explore": 2, "spike": 2, "evaluate": 1.5, "compare": 1.5,
		"unknown": 1, "prototype": 1.5,
	},
}

// ScoredStrategy pairs a strategy with its normalized confidence.
type ScoredStrategy struct {
	Strategy   Strategy
	Confidence float64
}

// SelectStrategy scores task text against the keyword table and returns the
// winning strategy, its normalized confidence, and the next two alternatives
// (spec §4.7). Ties are broken by priorityOrder.
func SelectStrategy(taskText string) (winner Strategy, confidence float64, alternatives []ScoredStrategy) {
	lower := strings.ToLower(taskText)
	scores := make(map[Strategy]float64, len(priorityOrder))
	total := 0.0
	for _, s := range priorityOrder {
		for kw, weight := range keywordWeights[s] {
			if strings.Contains(lower, kw) {
				scores[s] += weight
				total += weight
			}
		}
	}

	ranked := make([]ScoredStrategy, 0, len(priorityOrder))
	for _, s := range priorityOrder {
		ranked = append(ranked, ScoredStrategy{Strategy: s, Confidence: scores[s]})
	}

	best := 0
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Confidence > ranked[best].Confidence {
			best = i
		}
	}

	if total == 0 {
		// No keyword matched anything: fall back to the first priority
		// entry with zero confidence rather than an arbitrary pick.
		winner = ranked[0].Strategy
		confidence = 0
	} else {
		winner = ranked[best].Strategy
		confidence = ranked[best].Confidence / total
	}

	for i, r := range ranked {
		if i == best {
			continue
		}
		normalized := r.Confidence
		if total > 0 {
			normalized = r.Confidence / total
		}
		alternatives = append(alternatives, ScoredStrategy{Strategy: r.Strategy, Confidence: normalized})
		if len(alternatives) == 2 {
			break
		}
	}
	return winner, confidence, alternatives
}
