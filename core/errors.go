package core

import "errors"

// Sentinel errors forming the shared taxonomy. Operations wrap these with
// fmt.Errorf("%w: ...") so callers can discriminate with errors.Is while the
// message retains operation-specific detail.
var (
	// ErrNotFound is returned when a requested session, prompt or experiment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage is returned on read/write faults or corrupt records. A turn
	// that cannot be persisted must never be reported as successful.
	ErrStorage = errors.New("storage failure")

	// ErrConfig is returned for invalid configuration, e.g. a traffic split
	// whose weights do not sum to 1.0.
	ErrConfig = errors.New("invalid configuration")

	// ErrUpstream is returned when the generation collaborator fails or times
	// out. The orchestrator recovers locally by substituting a degraded
	// response marker.
	ErrUpstream = errors.New("upstream generation failure")

	// ErrScoring is returned for a malformed or unscorable history. Recovered
	// locally by substituting the neutral default score.
	ErrScoring = errors.New("unscorable history")
)
