// Package relay implements the per-connection session orchestrator: a single
// goroutine that owns the session state, drives the poll-and-diff loop against
// the search provider, fans work out to the analysis workers and serializes
// every outcome onto one ordered event stream.
//
// All mutation happens on the orchestrator goroutine. Client messages, timer
// ticks, fetch completions and worker replies arrive through one inbox channel
// and are handled strictly in arrival order, so the session needs no locking.
package relay
