// Package core provides the foundational domain types and interfaces used by
// newsrelay. It defines the core abstractions for:
//
//   - Items and ResultBatches (one fetch's worth of news results)
//   - Events (the tagged outbound stream delivered to a client channel)
//   - Sessions (per-connection search state: query, sort, dedup, history)
//   - SeenCache / HistoryRing (bounded per-session structures)
//   - Pluggable boundary collaborators (search provider, source catalog)
//
// The package intentionally keeps implementation concerns (HTTP transport,
// provider clients, orchestration) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
