// Package store houses concrete implementations of core.Store. FileStore is
// the durable backend: each session, interaction snapshot and system prompt
// is a self-describing JSON document on disk, written with a temp-file then
// atomic-rename discipline and fsync so completed writes survive a crash.
// InMemoryStore is a volatile implementation for tests and demos.
//
// Only implementations live here; the Store contract itself sits in core so
// the orchestrator never depends on a concrete backend. Additional backends
// (Redis, Postgres, etc.) can be added in sub-packages without changing any
// calling code.
package store
