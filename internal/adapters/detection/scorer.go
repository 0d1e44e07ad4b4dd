package detection

import (
	"github.com/soctools/logwarden/internal/domain"
)

// ScoreConfig holds the additive scoring weights.
type ScoreConfig struct {
	KindWeights    map[domain.ThreatKind]int
	StatusSeverity map[string]int
}

func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		KindWeights: map[domain.ThreatKind]int{
			domain.ThreatBruteForce:   15,
			domain.ThreatPortScan:     10,
			domain.ThreatSQLInjection: 30,
			domain.ThreatDDoS:         40,
		},
		StatusSeverity: map[string]int{
			"403": 3,
			"401": 2,
			"404": 1,
			"400": 1,
		},
	}
}

// AdditiveScorer sums finding-kind weights and per-status severities, then
// clamps to [0,100]. Pure and deterministic.
type AdditiveScorer struct {
	config ScoreConfig
}

func NewAdditiveScorer(config ScoreConfig) *AdditiveScorer {
	return &AdditiveScorer{config: config}
}

func (s *AdditiveScorer) Score(rec *domain.ActivityRecord, findings []domain.Finding) int {
	score := 0
	for _, f := range findings {
		score += s.config.KindWeights[f.Kind]
	}
	for code, count := range rec.StatusCodes {
		score += s.config.StatusSeverity[code] * count
	}
	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
