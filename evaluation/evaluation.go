// Package evaluation re-scores stored interaction records offline and
// summarizes the results. It consumes the store's export cursor, so a large
// corpus is processed one record at a time, and produces per-metric summary
// statistics plus coarse improvement suggestions derived from them.
package evaluation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/asim800/chatLangGraph/core"
	"github.com/asim800/chatLangGraph/scoring"
)

// Stats summarizes one metric's distribution across the evaluated records.
type Stats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary is the result of an evaluation run. MetricStats is keyed by metric
// name plus the synthetic "overall" entry for the aggregate score.
type Summary struct {
	TotalInteractions int              `json:"total_interactions"`
	MetricStats       map[string]Stats `json:"metric_statistics"`
	Suggestions       []string         `json:"suggestions,omitempty"`
}

// EngagementReport aggregates raw engagement signals over the stored corpus
// without re-scoring anything.
type EngagementReport struct {
	TotalInteractions     int     `json:"total_interactions"`
	UniqueUsers           int     `json:"unique_users"`
	UniqueSessions        int     `json:"unique_sessions"`
	AvgEngagementScore    float64 `json:"avg_engagement_score"`
	TotalMessages         int     `json:"total_messages"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
	DegradedInteractions  int     `json:"degraded_interactions"`
}

// Evaluator re-scores exported interactions with a scorer, typically one
// configured with different weights than the live pipeline.
type Evaluator struct {
	store  core.Store
	scorer *scoring.Scorer
}

// NewEvaluator wires an evaluator over a store and scorer.
func NewEvaluator(store core.Store, scorer *scoring.Scorer) *Evaluator {
	return &Evaluator{store: store, scorer: scorer}
}

// Evaluate re-scores every interaction recorded at or after since (zero time
// means the whole corpus) and returns summary statistics with improvement
// suggestions. An empty corpus yields a zero-count summary, not an error.
func (e *Evaluator) Evaluate(ctx context.Context, since time.Time) (*Summary, error) {
	cur, err := e.store.ExportInteractions(ctx, since)
	if err != nil {
		return nil, err
	}

	perMetric := map[string][]float64{}
	var count int
	for rec, ok := cur.Next(); ok; rec, ok = cur.Next() {
		count++
		overall, breakdown := e.scorer.ScoreDetailed(scoring.Input{
			Messages: rec.Messages,
			Now:      rec.Timestamp,
		})
		for name, score := range breakdown {
			perMetric[name] = append(perMetric[name], score)
		}
		perMetric["overall"] = append(perMetric["overall"], overall)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%w: evaluation aborted: %v", core.ErrScoring, err)
	}

	summary := &Summary{
		TotalInteractions: count,
		MetricStats:       make(map[string]Stats, len(perMetric)),
	}
	for name, scores := range perMetric {
		summary.MetricStats[name] = summarize(scores)
	}
	summary.Suggestions = Suggestions(summary.MetricStats)
	return summary, nil
}

// EngagementMetrics walks the stored interactions and aggregates the recorded
// engagement signals. Pass a non-empty userID to restrict the report.
func (e *Evaluator) EngagementMetrics(ctx context.Context, userID string) (*EngagementReport, error) {
	cur, err := e.store.ExportInteractions(ctx, time.Time{})
	if err != nil {
		return nil, err
	}

	report := &EngagementReport{}
	users := map[string]struct{}{}
	sessions := map[string]struct{}{}
	var scoreSum float64
	for rec, ok := cur.Next(); ok; rec, ok = cur.Next() {
		if userID != "" && rec.UserID != userID {
			continue
		}
		report.TotalInteractions++
		report.TotalMessages += len(rec.Messages)
		scoreSum += rec.EngagementScore
		if rec.Degraded {
			report.DegradedInteractions++
		}
		users[rec.UserID] = struct{}{}
		sessions[rec.SessionID] = struct{}{}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	report.UniqueUsers = len(users)
	report.UniqueSessions = len(sessions)
	if report.TotalInteractions > 0 {
		report.AvgEngagementScore = scoreSum / float64(report.TotalInteractions)
	}
	if report.UniqueSessions > 0 {
		report.AvgMessagesPerSession = float64(report.TotalMessages) / float64(report.UniqueSessions)
	}
	return report, nil
}

// Suggestions maps weak metric means to coarse, human-readable advice. The
// thresholds are heuristics carried over from operational experience, not
// tunables.
func Suggestions(stats map[string]Stats) []string {
	var out []string
	if s, ok := stats["conversation_length"]; ok && s.Mean < 0.5 {
		out = append(out, "Consider asking more follow-up questions to extend conversations")
	}
	if s, ok := stats["response_quality"]; ok && s.Mean < 0.6 {
		out = append(out, "Improve response quality by providing more detailed and helpful answers")
	}
	if s, ok := stats["user_engagement"]; ok && s.Mean < 0.5 {
		out = append(out, "Encourage more user participation with engaging questions and prompts")
	}
	if s, ok := stats["conversation_flow"]; ok && s.Mean < 0.7 {
		out = append(out, "Work on maintaining natural conversation flow and timing")
	}
	if s, ok := stats["stickiness"]; ok && s.Mean < 0.5 {
		out = append(out, "Focus on building rapport and creating memorable interactions")
	}
	return out
}

func summarize(scores []float64) Stats {
	if len(scores) == 0 {
		return Stats{}
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var variance float64
	if len(sorted) > 1 {
		for _, v := range sorted {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(sorted) - 1)
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Stats{
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(variance),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
