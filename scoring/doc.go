// Package scoring computes a normalized engagement score for a conversation
// history. Five weighted metrics (length, quality, user engagement, flow,
// stickiness) are each clamped to [0,1] before weighting, so the aggregate is
// always in [0,1]. Scoring is pure: identical input yields an identical
// score, with no side effects, which keeps the pipeline testable and allows
// exported interactions to be re-scored offline.
package scoring
