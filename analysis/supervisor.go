package analysis

import (
	"errors"
	"time"

	"github.com/newsrelay/newsrelay/core"
)

// Decision is the outcome of the restart policy for one worker crash.
type Decision int

const (
	// DecisionRestart replaces the worker with a fresh one.
	DecisionRestart Decision = iota
	// DecisionStop permanently disables the kind for the session.
	DecisionStop
	// DecisionEscalate hands the failure past the session boundary; the
	// owning connection layer decides whether to tear the session down.
	DecisionEscalate
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case DecisionRestart:
		return "restart"
	case DecisionStop:
		return "stop"
	case DecisionEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

// RestartPolicyOptions configures a RestartPolicy.
type RestartPolicyOptions struct {
	// MaxRestarts bounds restarts per kind within Window.
	MaxRestarts int
	// Window is the rolling interval the budget applies to.
	Window time.Duration
	// Now is the clock; injectable for tests.
	Now func() time.Time
}

// RestartPolicy is the fault isolation policy between a session and its
// workers. Each kind is judged independently: a crash of one kind never
// affects its siblings. Recoverable transient crashes (upstream timeout,
// connectivity, malformed response) are restarted with fresh state within a
// budget of MaxRestarts per rolling Window; past the budget the kind is
// permanently stopped for the session. Unclassified crashes escalate.
//
// The policy is confined to the session goroutine and carries no locking.
type RestartPolicy struct {
	maxRestarts int
	window      time.Duration
	now         func() time.Time
	restarts    map[Kind][]time.Time
	stopped     map[Kind]bool
}

// NewRestartPolicy creates a policy with the default budget: 3 restarts per
// rolling minute per kind.
func NewRestartPolicy(optFns ...func(o *RestartPolicyOptions)) *RestartPolicy {
	opts := RestartPolicyOptions{
		MaxRestarts: 3,
		Window:      time.Minute,
		Now:         time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &RestartPolicy{
		maxRestarts: opts.MaxRestarts,
		window:      opts.Window,
		now:         opts.Now,
		restarts:    map[Kind][]time.Time{},
		stopped:     map[Kind]bool{},
	}
}

// Decide classifies a crash and returns the action to take. A restart is
// recorded against the kind's budget.
func (p *RestartPolicy) Decide(kind Kind, reason any) Decision {
	if p.stopped[kind] {
		return DecisionStop
	}

	if !recoverable(reason) {
		p.stopped[kind] = true
		return DecisionEscalate
	}

	cutoff := p.now().Add(-p.window)
	recent := p.restarts[kind][:0]
	for _, t := range p.restarts[kind] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= p.maxRestarts {
		p.restarts[kind] = recent
		p.stopped[kind] = true
		return DecisionStop
	}

	p.restarts[kind] = append(recent, p.now())
	return DecisionRestart
}

// Stopped reports whether the kind has been permanently disabled.
func (p *RestartPolicy) Stopped(kind Kind) bool { return p.stopped[kind] }

// recoverable reports whether a crash reason is a classified transient
// upstream failure. Anything that is not an error wrapping one of the
// upstream sentinels is unclassified.
func recoverable(reason any) bool {
	err, ok := reason.(error)
	if !ok {
		return false
	}
	return errors.Is(err, core.ErrTimeout) ||
		errors.Is(err, core.ErrConnectivity) ||
		errors.Is(err, core.ErrMalformed)
}
