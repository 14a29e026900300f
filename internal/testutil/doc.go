// Package testutil provides shared test helpers: item and batch builders and
// a scripted search provider for driving orchestrator scenarios.
package testutil
