// Package analysis provides the per-batch analytic workers and their fault
// isolation policy. Five worker kinds exist (readability, sentiment, word
// frequency, source profile, source catalog); they are structurally
// identical: a long-lived goroutine consuming tasks and emitting exactly one
// tagged reply per task. Collaborator failures become tagged fallback
// results; panics surface as crash replies handled by the RestartPolicy.
package analysis
