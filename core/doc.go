// Package core provides the foundational domain types and contracts used by
// chatLangGraph. It defines the core abstractions for:
//
//   - Messages (immutable utterances with a closed role variant)
//   - Sessions (ordered per-user conversation state)
//   - Interactions (immutable per-turn snapshots for offline evaluation)
//   - The Store contract for durable keyed persistence
//   - The shared error taxonomy discriminated via errors.Is
//
// The package intentionally keeps implementation concerns (file persistence,
// orchestration, scoring) out of scope, exposing small interfaces so that
// backends and pipelines can evolve independently.
package core
