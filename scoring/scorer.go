package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/asim800/chatLangGraph/core"
)

// NeutralScore is returned for histories too short to score (empty or a
// single message) and substituted when an individual metric cannot be
// computed.
const NeutralScore = 0.5

// weightTolerance bounds the acceptable drift of the weight sum from 1.0.
const weightTolerance = 0.01

// Weights assigns the relative importance of each built-in metric. The sum
// must be 1.0 within a small tolerance unless custom metrics shift the total;
// the aggregate is always normalized by the actual total weight.
type Weights struct {
	Length         float64 `yaml:"length"`
	Quality        float64 `yaml:"quality"`
	UserEngagement float64 `yaml:"user_engagement"`
	Flow           float64 `yaml:"flow"`
	Stickiness     float64 `yaml:"stickiness"`
}

// Config carries the tunable parameters of the scorer. The default values
// are empirically chosen starting points, not contracts; deployments tune
// them through configuration.
type Config struct {
	Weights Weights `yaml:"weights"`

	// LengthSaturation is the message count at which the length metric
	// saturates at 1.0.
	LengthSaturation int `yaml:"length_saturation"`
	// QualityLengthNorm is the assistant response length (chars) treated as
	// fully substantive.
	QualityLengthNorm float64 `yaml:"quality_length_norm"`
	// UserLengthNorm is the user message length (chars) treated as fully
	// engaged.
	UserLengthNorm float64 `yaml:"user_length_norm"`
	// MaxGap and MinGap bound natural pacing; gaps outside are penalized.
	MaxGap time.Duration `yaml:"max_gap"`
	MinGap time.Duration `yaml:"min_gap"`
	// OptimalDuration is the session length scoring highest on stickiness.
	OptimalDuration time.Duration `yaml:"optimal_duration"`
	// ReturnSaturation is the distinct prior session count at which the
	// return-visit component saturates.
	ReturnSaturation int `yaml:"return_saturation"`
	// RecencyWindow is how far back a prior visit still counts as recent.
	RecencyWindow time.Duration `yaml:"recency_window"`
}

// DefaultConfig returns the baseline scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Length:         0.20,
			Quality:        0.30,
			UserEngagement: 0.20,
			Flow:           0.15,
			Stickiness:     0.15,
		},
		LengthSaturation:  20,
		QualityLengthNorm: 500,
		UserLengthNorm:    100,
		MaxGap:            10 * time.Minute,
		MinGap:            time.Second,
		OptimalDuration:   15 * time.Minute,
		ReturnSaturation:  5,
		RecencyWindow:     7 * 24 * time.Hour,
	}
}

// Validate checks weight sanity. Custom metric weights are validated at
// registration.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"length": w.Length, "quality": w.Quality, "user_engagement": w.UserEngagement,
		"flow": w.Flow, "stickiness": w.Stickiness,
	} {
		if v < 0 {
			return fmt.Errorf("%w: negative weight for metric %s", core.ErrConfig, name)
		}
	}
	sum := w.Length + w.Quality + w.UserEngagement + w.Flow + w.Stickiness
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: metric weights sum to %.3f, want 1.0", core.ErrConfig, sum)
	}
	return nil
}

// Input is everything the scorer may consult. Messages is the session history
// including the just-produced response. The stickiness fields describe the
// user's prior sessions; zero values degrade that metric to its neutral
// components rather than failing.
type Input struct {
	Messages []core.Message
	// Now anchors recency computations; callers pass the turn time so that
	// scoring stays deterministic for identical input.
	Now time.Time
	// PriorSessionCount is the number of distinct earlier sessions recorded
	// for the same user.
	PriorSessionCount int
	// LastSessionAt is when the user's previous session was last updated.
	LastSessionAt time.Time
}

// Metric is a named, weighted scoring function. Custom metrics extend the
// built-in five without touching the aggregate contract.
type Metric struct {
	Name        string
	Description string
	Weight      float64
	Fn          func(cfg Config, in Input) float64
}

// Scorer aggregates the weighted metrics. It is stateless after construction
// and safe for concurrent use.
type Scorer struct {
	cfg    Config
	custom []Metric
}

// NewScorer constructs a scorer, failing fast on invalid weights.
func NewScorer(cfg Config, custom ...Metric) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, m := range custom {
		if m.Weight < 0 {
			return nil, fmt.Errorf("%w: negative weight for custom metric %s", core.ErrConfig, m.Name)
		}
		if m.Fn == nil {
			return nil, fmt.Errorf("%w: custom metric %s has no score function", core.ErrConfig, m.Name)
		}
	}
	return &Scorer{cfg: cfg, custom: custom}, nil
}

// MustNewScorer is a construction helper for the default configuration.
func MustNewScorer() *Scorer {
	s, err := NewScorer(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return s
}

// Score returns the aggregate engagement score in [0,1]. Histories with fewer
// than two messages yield NeutralScore.
func (s *Scorer) Score(in Input) float64 {
	overall, _ := s.ScoreDetailed(in)
	return overall
}

// ScoreDetailed returns the aggregate plus the per-metric breakdown.
func (s *Scorer) ScoreDetailed(in Input) (float64, map[string]float64) {
	if len(in.Messages) < 2 {
		return NeutralScore, map[string]float64{}
	}

	breakdown := map[string]float64{
		"conversation_length": clamp01(scoreLength(s.cfg, in)),
		"response_quality":    clamp01(scoreQuality(s.cfg, in)),
		"user_engagement":     clamp01(scoreUserEngagement(s.cfg, in)),
		"conversation_flow":   clamp01(scoreFlow(s.cfg, in)),
		"stickiness":          clamp01(scoreStickiness(s.cfg, in)),
	}

	w := s.cfg.Weights
	weightedSum := breakdown["conversation_length"]*w.Length +
		breakdown["response_quality"]*w.Quality +
		breakdown["user_engagement"]*w.UserEngagement +
		breakdown["conversation_flow"]*w.Flow +
		breakdown["stickiness"]*w.Stickiness
	totalWeight := w.Length + w.Quality + w.UserEngagement + w.Flow + w.Stickiness

	for _, m := range s.custom {
		score := clamp01(m.Fn(s.cfg, in))
		breakdown[m.Name] = score
		weightedSum += score * m.Weight
		totalWeight += m.Weight
	}

	if totalWeight <= 0 {
		return NeutralScore, breakdown
	}
	return clamp01(weightedSum / totalWeight), breakdown
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
