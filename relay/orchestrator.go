package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/newsrelay/newsrelay/analysis"
	"github.com/newsrelay/newsrelay/core"
	"github.com/newsrelay/newsrelay/logging"
	"github.com/newsrelay/newsrelay/scorer"
)

// DefaultPollInterval is the rearm delay between poll cycles.
const DefaultPollInterval = 30 * time.Second

// RateLimitedBackoff multiplies the poll interval after the provider reports
// rate limiting.
const RateLimitedBackoff = 4

// sessionState is the orchestrator's lifecycle phase.
type sessionState int

const (
	// stateIdle means no search has been started yet.
	stateIdle sessionState = iota
	// stateSearching means a search is active and the poll loop is armed.
	stateSearching
	// stateStopped means the search ended, by request or fatally. History
	// stays replayable and a new start_search leaves the state again.
	stateStopped
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateSearching:
		return "searching"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures an Orchestrator.
type Options struct {
	// PollInterval is the delay between poll cycles.
	PollInterval time.Duration
	// RateLimitedInterval is the rearm delay after a rate-limited fetch.
	// Zero means RateLimitedBackoff times PollInterval.
	RateLimitedInterval time.Duration
	// FetchTimeout bounds one provider call.
	FetchTimeout time.Duration
	// WorkerTimeout bounds one analyzer invocation.
	WorkerTimeout time.Duration
	// EventBufferSize buffers the outbound event channel.
	EventBufferSize int
	// SeenCapacity bounds the dedup cache; HistoryCapacity the history ring.
	SeenCapacity    int
	HistoryCapacity int
	// Catalog backs the source-profile and source-catalog workers.
	Catalog core.SourceCatalog
	// Sentiment scores batch sentiment. Nil falls back to the lexicon model.
	Sentiment scorer.Model
	// TopWords bounds the word-frequency table.
	TopWords int
	// Policy governs worker crash handling. Nil gets the default budget.
	Policy *analysis.RestartPolicy
	// OnEscalate is invoked when a worker crash escalates past the session.
	// Called on the orchestrator goroutine; it must not block.
	OnEscalate func(kind analysis.Kind, reason any)
	Logger     logging.Logger
}

// Orchestrator owns one client connection's session. It serializes client
// messages, poll ticks, fetch completions and worker replies through a single
// inbox and emits ordered events on Events.
//
// Construct with New, then run the loop with Run. Handle may be called from
// any goroutine; everything else happens on the Run goroutine.
type Orchestrator struct {
	session  *core.Session
	provider core.SearchProvider

	analyzers map[analysis.Kind]analysis.Analyzer
	workers   map[analysis.Kind]*analysis.Worker
	policy    *analysis.RestartPolicy

	pollInterval  time.Duration
	slowInterval  time.Duration
	fetchTimeout  time.Duration
	workerTimeout time.Duration

	state  sessionState
	gen    uint64
	filter core.SourceFilter
	timer  *time.Timer

	ctx    context.Context
	inbox  chan any
	events chan core.Event
	done   chan struct{}

	onEscalate func(kind analysis.Kind, reason any)
	logger     logging.Logger
}

// New creates an orchestrator for one connection, polling the given provider.
func New(provider core.SearchProvider, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		PollInterval:    DefaultPollInterval,
		FetchTimeout:    15 * time.Second,
		WorkerTimeout:   10 * time.Second,
		EventBufferSize: 64,
		SeenCapacity:    core.DefaultSeenCapacity,
		HistoryCapacity: core.DefaultHistoryCapacity,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.RateLimitedInterval <= 0 {
		opts.RateLimitedInterval = RateLimitedBackoff * opts.PollInterval
	}
	if opts.Policy == nil {
		opts.Policy = analysis.NewRestartPolicy()
	}

	sess := core.NewSession(core.NewID())
	sess.Seen = core.NewSeenCache(opts.SeenCapacity)
	sess.History = core.NewHistoryRing(opts.HistoryCapacity)

	analyzers := map[analysis.Kind]analysis.Analyzer{
		analysis.KindReadability:   analysis.NewReadabilityAnalyzer(nil),
		analysis.KindSentiment:     analysis.NewSentimentAnalyzer(opts.Sentiment),
		analysis.KindWordStats:     analysis.NewWordStatsAnalyzer(opts.TopWords),
		analysis.KindSourceProfile: analysis.NewSourceProfileAnalyzer(opts.Catalog),
		analysis.KindSourceCatalog: analysis.NewSourceCatalogAnalyzer(opts.Catalog),
	}

	return &Orchestrator{
		session:       sess,
		provider:      provider,
		analyzers:     analyzers,
		workers:       make(map[analysis.Kind]*analysis.Worker, len(analyzers)),
		policy:        opts.Policy,
		pollInterval:  opts.PollInterval,
		slowInterval:  opts.RateLimitedInterval,
		fetchTimeout:  opts.FetchTimeout,
		workerTimeout: opts.WorkerTimeout,
		state:         stateIdle,
		inbox:         make(chan any, 32),
		events:        make(chan core.Event, opts.EventBufferSize),
		done:          make(chan struct{}),
		onEscalate:    opts.OnEscalate,
		logger:        opts.Logger,
	}
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.session.ID }

// Events returns the ordered outbound event stream. It is closed when Run
// returns.
func (o *Orchestrator) Events() <-chan core.Event { return o.events }

// Done is closed when the orchestrator has shut down.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

// Handle parses a raw inbound frame and posts the command to the session.
// Unknown or malformed frames are logged and dropped. Safe to call from the
// connection's read goroutine.
func (o *Orchestrator) Handle(raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		o.logger.Warn("dropping malformed client message", "error", err)
		return
	}

	switch msg.Type {
	case msgStartSearch:
		o.post(startSearchMsg{
			query:  strings.TrimSpace(msg.Query),
			sortBy: core.ParseSortMode(msg.SortBy),
			filter: msg.Filter,
		})
	case msgStopSearch:
		o.post(stopSearchMsg{})
	case msgPing:
		o.post(pingMsg{})
	case msgGetHistory:
		o.post(getHistoryMsg{})
	default:
		o.logger.Warn("ignoring unknown client message type", "type", msg.Type)
	}
}

// Run drives the session loop until ctx is canceled, then tears the session
// down: the timer is stopped, workers are drained and the event channel is
// closed.
func (o *Orchestrator) Run(ctx context.Context) {
	o.ctx = ctx
	for _, kind := range analysis.Kinds() {
		o.spawnWorker(kind)
	}
	defer o.teardown()

	o.logger.Debug("session started", "session_id", o.session.ID)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-o.inbox:
			o.dispatch(m)
		}
	}
}

// post delivers a message to the inbox unless the session has shut down.
func (o *Orchestrator) post(m any) {
	select {
	case o.inbox <- m:
	case <-o.done:
	}
}

// emit delivers an event to the client channel. Only called from the loop
// goroutine; a canceled context unblocks a stalled send during shutdown.
func (o *Orchestrator) emit(ev core.Event) {
	select {
	case o.events <- ev:
	case <-o.ctx.Done():
	}
}

func (o *Orchestrator) dispatch(m any) {
	switch m := m.(type) {
	case startSearchMsg:
		o.handleStartSearch(m)
	case stopSearchMsg:
		o.handleStopSearch()
	case pingMsg:
		o.emit(core.NewPongEvent())
	case getHistoryMsg:
		o.emitHistory()
	case tickMsg:
		o.handleTick(m)
	case fetchDoneMsg:
		o.handleFetchDone(m)
	case analysis.Reply:
		o.handleReply(m)
	default:
		o.logger.Error("unhandled inbox message", "type", fmt.Sprintf("%T", m))
	}
}

// handleStartSearch begins a new search, superseding any active one. The
// generation bump invalidates in-flight fetches and armed timers of the
// previous search.
func (o *Orchestrator) handleStartSearch(m startSearchMsg) {
	if m.query == "" {
		o.emit(core.NewErrorEvent("query must not be empty", false))
		return
	}

	o.cancelTimer()
	o.gen++
	o.session.SetSearch(m.query, m.sortBy)
	o.filter = m.filter
	o.state = stateSearching

	o.logger.Info("search started", "session_id", o.session.ID, "query", m.query, "sort", m.sortBy)
	o.issueFetch(true)
}

// handleStopSearch ends the active search. History stays replayable.
func (o *Orchestrator) handleStopSearch() {
	o.cancelTimer()
	o.gen++
	o.session.ClearSearch()
	o.state = stateStopped

	o.logger.Info("search stopped", "session_id", o.session.ID)
	o.emit(core.NewStatusEvent("Search stopped"))
}

func (o *Orchestrator) handleTick(m tickMsg) {
	if m.gen != o.gen || o.state != stateSearching {
		return
	}
	o.timer = nil
	o.issueFetch(false)
}

// issueFetch runs one provider call on its own goroutine and posts the
// outcome back to the inbox tagged with the current generation.
func (o *Orchestrator) issueFetch(initial bool) {
	gen := o.gen
	query := o.session.Query
	sortBy := o.session.SortBy

	go func() {
		ctx, cancel := context.WithTimeout(o.ctx, o.fetchTimeout)
		defer cancel()

		started := time.Now()
		batch, err := o.provider.Search(ctx, query, sortBy)
		if err != nil {
			o.logger.Warn("fetch failed", "session_id", o.session.ID, "query", query, "duration", time.Since(started), "error", err)
		} else {
			o.logger.Debug("fetch completed", "session_id", o.session.ID, "query", query, "items", len(batch.Items), "duration", time.Since(started))
		}
		o.post(fetchDoneMsg{gen: gen, initial: initial, batch: batch, err: err})
	}()
}

func (o *Orchestrator) handleFetchDone(m fetchDoneMsg) {
	if m.gen != o.gen || o.state != stateSearching {
		o.logger.Debug("discarding stale fetch result", "gen", m.gen, "current", o.gen)
		return
	}

	if m.err != nil {
		o.handleFetchError(m.err)
		return
	}

	if m.initial {
		batch := *m.batch
		o.session.MarkSeen(batch.Items)
		o.session.History.PushFront(batch)

		o.emit(core.NewEvent(core.EventInitialResults, core.InitialResults{
			Query:        batch.Query,
			SortBy:       batch.SortBy,
			TotalResults: batch.TotalResults,
			Items:        batch.Items,
			Timestamp:    batch.CreatedAt,
		}))
		o.emitHistory()
		o.fanout(batch.Items)
	} else {
		fresh := o.session.FilterNew(m.batch.Items)
		if len(fresh) > 0 {
			o.emit(core.NewEvent(core.EventAppend, core.Append{Items: fresh, Count: len(fresh)}))
			o.fanout(fresh)
		}
	}

	o.armTimer(o.pollInterval)
}

// handleFetchError reacts per error class: timeouts keep polling with a
// status note, rate limiting slows the loop down, connectivity failures end
// the search, anything else is reported and retried at the normal cadence.
func (o *Orchestrator) handleFetchError(err error) {
	switch core.Classify(err) {
	case core.ErrTimeout:
		o.emit(core.NewStatusEvent("Results delayed, still searching"))
		o.armTimer(o.pollInterval)
	case core.ErrRateLimited:
		o.emit(core.NewStatusEvent("Rate limited by the news provider, slowing down"))
		o.armTimer(o.slowInterval)
	case core.ErrConnectivity:
		o.cancelTimer()
		o.session.ClearSearch()
		o.state = stateStopped
		o.emit(core.NewErrorEvent("News provider unreachable, search stopped", true))
	default:
		o.emit(core.NewErrorEvent(err.Error(), false))
		o.armTimer(o.pollInterval)
	}
}

// fanout dispatches one task per live worker over the given items. Stopped
// kinds are simply absent from the map and receive nothing. A rejected task
// (queue full behind a stalled collaborator, or a worker that just exited)
// substitutes the kind's fallback so the client still gets exactly one reply
// per kind per batch.
func (o *Orchestrator) fanout(items []core.Item) {
	for kind, w := range o.workers {
		task := analysis.Task{Kind: kind, Gen: o.gen}
		if kind == analysis.KindSourceCatalog {
			task.Filter = o.filter
		} else {
			task.Items = items
		}
		if !w.Submit(task) {
			o.handleReply(analysis.Reply{Kind: kind, Result: analysis.Fallback(kind, o.gen)})
		}
	}
}

// handleReply forwards a completed worker result to the client, or routes a
// crash through the restart policy. Results from a superseded generation are
// suppressed.
func (o *Orchestrator) handleReply(r analysis.Reply) {
	if r.Crash != nil {
		o.handleCrash(*r.Crash)
		return
	}

	res := r.Result
	if res.Gen != o.gen || o.state != stateSearching {
		o.logger.Debug("suppressing stale worker result", "kind", res.Kind, "gen", res.Gen)
		return
	}

	if res.Valid {
		if front := o.session.History.Front(); front != nil {
			front.AttachAnalytics(string(res.Kind), res.Data)
		}
	}
	o.emit(core.NewEvent(core.EventType(res.Kind), res))
}

// handleCrash applies the restart policy. Restarted kinds get a fresh worker;
// stopped kinds drop out of the fanout for the rest of the session;
// escalations are surfaced to the client and handed to the connection layer.
func (o *Orchestrator) handleCrash(c analysis.Crash) {
	decision := o.policy.Decide(c.Kind, c.Reason)
	o.logger.Warn("worker crash handled", "kind", c.Kind, "decision", decision.String(), "reason", c.Reason)

	delete(o.workers, c.Kind)

	switch decision {
	case analysis.DecisionRestart:
		o.spawnWorker(c.Kind)
	case analysis.DecisionStop:
		o.emit(core.NewStatusEvent(fmt.Sprintf("%s analysis disabled after repeated failures", c.Kind)))
	case analysis.DecisionEscalate:
		o.emit(core.NewErrorEvent(fmt.Sprintf("%s analysis failed", c.Kind), false))
		if o.onEscalate != nil {
			o.onEscalate(c.Kind, c.Reason)
		}
	}
}

func (o *Orchestrator) spawnWorker(kind analysis.Kind) {
	w := analysis.NewWorker(o.analyzers[kind], func(r analysis.Reply) { o.post(r) }, func(wo *analysis.WorkerOptions) {
		wo.Timeout = o.workerTimeout
		wo.Logger = o.logger
	})
	o.workers[kind] = w
	w.Start()
}

func (o *Orchestrator) emitHistory() {
	batches := o.session.History.List()
	o.emit(core.NewEvent(core.EventHistory, core.HistorySnapshot{
		Batches:  batches,
		Count:    len(batches),
		Capacity: o.session.History.Capacity(),
	}))
}

// armTimer schedules the next poll tick, replacing any armed timer. The tick
// carries the arming generation so a superseding search defuses it.
func (o *Orchestrator) armTimer(d time.Duration) {
	o.cancelTimer()
	gen := o.gen
	o.timer = time.AfterFunc(d, func() {
		o.post(tickMsg{gen: gen})
	})
}

func (o *Orchestrator) cancelTimer() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

// teardown runs once when the loop exits. Closing done first unblocks any
// worker or fetch goroutine parked on post.
func (o *Orchestrator) teardown() {
	o.cancelTimer()
	close(o.done)
	for _, w := range o.workers {
		w.Stop()
	}
	close(o.events)
	o.logger.Debug("session closed", "session_id", o.session.ID)
}
