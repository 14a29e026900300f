package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsrelay/newsrelay/analysis"
	"github.com/newsrelay/newsrelay/catalog"
	"github.com/newsrelay/newsrelay/core"
	"github.com/newsrelay/newsrelay/internal/testutil"
	"github.com/newsrelay/newsrelay/scorer"
)

const testPollInterval = 25 * time.Millisecond

func startSession(t *testing.T, provider core.SearchProvider, optFns ...func(o *Options)) *Orchestrator {
	t.Helper()

	store := catalog.NewInMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), []core.Source{
		{ID: "bbc-news", Name: "BBC News", Category: "general", Language: "en", Country: "gb"},
	}))

	base := func(o *Options) {
		o.PollInterval = testPollInterval
		o.Catalog = store
		o.TopWords = 5
	}
	orch := New(provider, append([]func(o *Options){base}, optFns...)...)

	ctx, cancel := context.WithCancel(context.Background())
	go orch.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-orch.Done()
	})
	return orch
}

func send(o *Orchestrator, frame string) { o.Handle([]byte(frame)) }

func startSearch(o *Orchestrator, query string) {
	send(o, fmt.Sprintf(`{"type":"start_search","query":%q}`, query))
}

func recvEvent(t *testing.T, o *Orchestrator) core.Event {
	t.Helper()
	select {
	case ev, ok := <-o.Events():
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return core.Event{}
	}
}

// recvEventOfType drains events until one of the wanted type arrives.
func recvEventOfType(t *testing.T, o *Orchestrator, want core.EventType) core.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-o.Events():
			require.True(t, ok, "event channel closed waiting for %s", want)
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func assertNoEventOfType(t *testing.T, o *Orchestrator, unwanted core.EventType, window time.Duration) {
	t.Helper()
	deadline := time.After(window)
	for {
		select {
		case ev, ok := <-o.Events():
			if !ok {
				return
			}
			assert.NotEqual(t, unwanted, ev.Type, "unexpected %s event: %+v", unwanted, ev.Data)
		case <-deadline:
			return
		}
	}
}

// analysisEventTypes is the set of event types produced by worker replies.
func analysisEventTypes() map[core.EventType]bool {
	out := map[core.EventType]bool{}
	for _, k := range analysis.Kinds() {
		out[core.EventType(k)] = true
	}
	return out
}

func TestOrchestrator_StartSearchFlow(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("climate", "u1", "u2", "u3", "u4", "u5")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "climate")

	initial := recvEvent(t, orch)
	require.Equal(t, core.EventInitialResults, initial.Type)
	payload, ok := initial.Data.(core.InitialResults)
	require.True(t, ok)
	assert.Equal(t, "climate", payload.Query)
	assert.Equal(t, core.SortRecency, payload.SortBy)
	assert.Len(t, payload.Items, 5)

	history := recvEvent(t, orch)
	require.Equal(t, core.EventHistory, history.Type)
	snapshot, ok := history.Data.(core.HistorySnapshot)
	require.True(t, ok)
	assert.Equal(t, 1, snapshot.Count)
	assert.Equal(t, core.DefaultHistoryCapacity, snapshot.Capacity)

	// One event per worker kind, any order, all valid.
	want := analysisEventTypes()
	got := map[core.EventType]bool{}
	for range want {
		ev := recvEvent(t, orch)
		require.True(t, want[ev.Type], "unexpected event type %s", ev.Type)
		require.False(t, got[ev.Type], "duplicate %s event", ev.Type)
		got[ev.Type] = true

		res, ok := ev.Data.(analysis.Result)
		require.True(t, ok)
		assert.True(t, res.Valid, "%s result should be valid", ev.Type)
	}
}

func TestOrchestrator_AnalyticsAttachToHistory(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("ai", "u1", "u2")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "ai")
	recvEventOfType(t, orch, core.EventInitialResults)
	for i := 0; i < len(analysis.Kinds())+1; i++ {
		recvEvent(t, orch) // history plus the five worker events
	}

	send(orch, `{"type":"get_history"}`)
	history := recvEventOfType(t, orch, core.EventHistory)
	snapshot := history.Data.(core.HistorySnapshot)
	require.Equal(t, 1, snapshot.Count)
	assert.Len(t, snapshot.Batches[0].Analytics, len(analysis.Kinds()))
}

func TestOrchestrator_PollAppendsOnlyUnseen(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("q", "u1", "u2", "u3", "u4", "u5")},
		testutil.Step{Batch: testutil.Batch("q", "u1", "u2", "u3", "u4", "u5", "u6")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "q")
	recvEventOfType(t, orch, core.EventInitialResults)
	for i := 0; i < len(analysis.Kinds())+1; i++ {
		recvEvent(t, orch) // history plus the first round of worker events
	}

	appendEv := recvEventOfType(t, orch, core.EventAppend)
	payload, ok := appendEv.Data.(core.Append)
	require.True(t, ok)
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "https://example.com/u6", payload.Items[0].URL)

	// The second analysis round runs over the fresh item only.
	readability := recvEventOfType(t, orch, core.EventType(analysis.KindReadability))
	stats := readability.Data.(analysis.Result).Data.(analysis.ReadabilityStats)
	require.Len(t, stats.Items, 1)
	assert.Equal(t, "https://example.com/u6", stats.Items[0].URL)
}

func TestOrchestrator_PollWithNoNewItemsStaysQuiet(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("q", "u1", "u2")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "q")
	recvEventOfType(t, orch, core.EventInitialResults)
	for i := 0; i < len(analysis.Kinds())+1; i++ {
		recvEvent(t, orch) // history plus the five worker events
	}

	// Polling continues but identical batches produce no client traffic.
	require.Eventually(t, func() bool { return provider.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assertNoEventOfType(t, orch, core.EventAppend, 4*testPollInterval)
}

func TestOrchestrator_StopSearch(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("q", "u1")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "q")
	recvEventOfType(t, orch, core.EventInitialResults)

	send(orch, `{"type":"stop_search"}`)
	status := recvEventOfType(t, orch, core.EventStatus)
	assert.Equal(t, "Search stopped", status.Data.(core.StatusInfo).Message)

	// The poll timer is defused: the fetch count settles.
	time.Sleep(2 * testPollInterval)
	settled := provider.Calls()
	time.Sleep(4 * testPollInterval)
	assert.Equal(t, settled, provider.Calls())
}

func TestOrchestrator_ConnectivityFailureStopsSession(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Err: fmt.Errorf("%w: dial tcp: connection refused", core.ErrConnectivity)},
	)
	orch := startSession(t, provider)

	startSearch(orch, "q")

	errEv := recvEventOfType(t, orch, core.EventError)
	info := errEv.Data.(core.ErrorInfo)
	assert.True(t, info.Fatal)
	assert.Contains(t, info.Message, "search stopped")

	// No rearm after a fatal error.
	time.Sleep(4 * testPollInterval)
	assert.Equal(t, 1, provider.Calls())
}

func TestOrchestrator_TimeoutKeepsPolling(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Err: fmt.Errorf("%w: context deadline exceeded", core.ErrTimeout)},
		testutil.Step{Batch: testutil.Batch("q", "u1")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "q")

	status := recvEventOfType(t, orch, core.EventStatus)
	assert.Contains(t, status.Data.(core.StatusInfo).Message, "delayed")

	// The next cycle succeeds; its items arrive as an append.
	appendEv := recvEventOfType(t, orch, core.EventAppend)
	assert.Equal(t, 1, appendEv.Data.(core.Append).Count)
}

func TestOrchestrator_RateLimitSlowsPolling(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Err: fmt.Errorf("%w: http 429", core.ErrRateLimited)},
		testutil.Step{Batch: testutil.Batch("q", "u1")},
	)
	orch := startSession(t, provider, func(o *Options) {
		o.PollInterval = 20 * time.Millisecond
		o.RateLimitedInterval = 150 * time.Millisecond
	})

	startSearch(orch, "q")

	status := recvEventOfType(t, orch, core.EventStatus)
	assert.Contains(t, status.Data.(core.StatusInfo).Message, "Rate limited")
	limited := time.Now()

	recvEventOfType(t, orch, core.EventAppend)
	assert.GreaterOrEqual(t, time.Since(limited), 100*time.Millisecond, "rearm should use the slow interval")
}

func TestOrchestrator_NewSearchSupersedesInFlightFetch(t *testing.T) {
	gate := make(chan struct{})
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("q1", "a1"), Gate: gate},
		testutil.Step{Batch: testutil.Batch("q2", "b1")},
	)
	orch := startSession(t, provider)

	startSearch(orch, "q1")
	require.Eventually(t, func() bool { return provider.Calls() == 1 }, time.Second, time.Millisecond)

	startSearch(orch, "q2")
	initial := recvEventOfType(t, orch, core.EventInitialResults)
	assert.Equal(t, "q2", initial.Data.(core.InitialResults).Query)

	// Release the superseded fetch; its result must be discarded.
	close(gate)
	assertNoEventOfType(t, orch, core.EventInitialResults, 4*testPollInterval)
}

func TestOrchestrator_PingAndHistoryWhenIdle(t *testing.T) {
	provider := testutil.NewScriptedProvider(testutil.Step{Batch: testutil.Batch("q")})
	orch := startSession(t, provider)

	send(orch, `{"type":"ping"}`)
	pong := recvEvent(t, orch)
	assert.Equal(t, core.EventPong, pong.Type)

	send(orch, `{"type":"get_history"}`)
	history := recvEvent(t, orch)
	require.Equal(t, core.EventHistory, history.Type)
	assert.Equal(t, 0, history.Data.(core.HistorySnapshot).Count)
}

func TestOrchestrator_EmptyQueryRejected(t *testing.T) {
	provider := testutil.NewScriptedProvider(testutil.Step{Batch: testutil.Batch("q")})
	orch := startSession(t, provider)

	send(orch, `{"type":"start_search","query":"   "}`)

	errEv := recvEventOfType(t, orch, core.EventError)
	info := errEv.Data.(core.ErrorInfo)
	assert.False(t, info.Fatal)
	assert.Contains(t, info.Message, "query")
	assert.Equal(t, 0, provider.Calls())
}

func TestOrchestrator_UnknownAndMalformedMessagesIgnored(t *testing.T) {
	provider := testutil.NewScriptedProvider(testutil.Step{Batch: testutil.Batch("q")})
	orch := startSession(t, provider)

	send(orch, `{"type":"subscribe"}`)
	send(orch, `{not json`)

	select {
	case ev := <-orch.Events():
		t.Fatalf("expected no events, got %s", ev.Type)
	case <-time.After(3 * testPollInterval):
	}
}

func TestOrchestrator_HistoryBounded(t *testing.T) {
	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("any", "u1")},
	)
	orch := startSession(t, provider)

	var last core.HistorySnapshot
	for i := 1; i <= 11; i++ {
		startSearch(orch, fmt.Sprintf("q%02d", i))
		recvEventOfType(t, orch, core.EventInitialResults)
		history := recvEventOfType(t, orch, core.EventHistory)
		last = history.Data.(core.HistorySnapshot)
	}

	require.Equal(t, 10, last.Count)
	assert.Equal(t, "q11", last.Batches[0].Query, "newest batch first")
	for _, b := range last.Batches {
		assert.NotEqual(t, "q01", b.Query, "oldest batch should be evicted")
	}
}

func TestOrchestrator_WorkerRestartBudgetExhausted(t *testing.T) {
	crashing := scorer.Func(func(context.Context, []string) ([]float64, error) {
		panic(fmt.Errorf("scoring backend: %w", core.ErrTimeout))
	})

	provider := testutil.NewScriptedProvider(
		testutil.Step{Batch: testutil.Batch("q", "a1")},
		testutil.Step{Batch: testutil.Batch("q", "a1", "a2")},
		testutil.Step{Batch: testutil.Batch("q", "a1", "a2", "a3")},
		testutil.Step{Batch: testutil.Batch("q", "a1", "a2", "a3", "a4")},
	)
	policy := analysis.NewRestartPolicy()
	orch := startSession(t, provider, func(o *Options) {
		o.PollInterval = 15 * time.Millisecond
		o.Sentiment = crashing
		o.Policy = policy
	})

	startSearch(orch, "q")

	// Three restarts within the window, then the kind is disabled.
	status := recvEventOfType(t, orch, core.EventStatus)
	assert.Contains(t, status.Data.(core.StatusInfo).Message, "sentiment analysis disabled")
	assert.True(t, policy.Stopped(analysis.KindSentiment))
}

func TestOrchestrator_UnclassifiedCrashEscalates(t *testing.T) {
	crashing := scorer.Func(func(context.Context, []string) ([]float64, error) {
		panic("sentiment backend corrupted")
	})

	escalated := make(chan analysis.Kind, 1)
	provider := testutil.NewScriptedProvider(testutil.Step{Batch: testutil.Batch("q", "u1")})
	orch := startSession(t, provider, func(o *Options) {
		o.Sentiment = crashing
		o.OnEscalate = func(kind analysis.Kind, reason any) { escalated <- kind }
	})

	startSearch(orch, "q")

	errEv := recvEventOfType(t, orch, core.EventError)
	info := errEv.Data.(core.ErrorInfo)
	assert.False(t, info.Fatal)
	assert.Contains(t, info.Message, "sentiment")

	select {
	case kind := <-escalated:
		assert.Equal(t, analysis.KindSentiment, kind)
	case <-time.After(time.Second):
		t.Fatal("escalation callback not invoked")
	}
}

func TestOrchestrator_StaleWorkerReplySuppressedAfterStop(t *testing.T) {
	gate := make(chan struct{})
	blocking := scorer.Func(func(ctx context.Context, texts []string) ([]float64, error) {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return make([]float64, len(texts)), nil
	})

	provider := testutil.NewScriptedProvider(testutil.Step{Batch: testutil.Batch("q", "u1")})
	orch := startSession(t, provider, func(o *Options) {
		o.Sentiment = blocking
	})

	startSearch(orch, "q")
	recvEventOfType(t, orch, core.EventInitialResults)

	// Everything but the gated sentiment worker completes.
	for i := 0; i < len(analysis.Kinds()); i++ {
		recvEvent(t, orch) // history plus four worker events
	}

	send(orch, `{"type":"stop_search"}`)
	recvEventOfType(t, orch, core.EventStatus)

	close(gate)
	assertNoEventOfType(t, orch, core.EventType(analysis.KindSentiment), 100*time.Millisecond)
}

func TestOrchestrator_SaturatedWorkerStillRepliesEachBatch(t *testing.T) {
	gate := make(chan struct{})
	stalled := scorer.Func(func(ctx context.Context, texts []string) ([]float64, error) {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return make([]float64, len(texts)), nil
	})

	// Each poll round grows the result set by one item, so every round fans
	// out a fresh batch to the workers.
	steps := make([]testutil.Step, 7)
	var slugs []string
	for i := range steps {
		slugs = append(slugs, fmt.Sprintf("a%d", i+1))
		steps[i] = testutil.Step{Batch: testutil.Batch("q", slugs...)}
	}
	provider := testutil.NewScriptedProvider(steps...)
	orch := startSession(t, provider, func(o *Options) {
		o.PollInterval = 15 * time.Millisecond
		o.Sentiment = stalled
		o.WorkerTimeout = time.Minute
	})

	startSearch(orch, "q")

	// Hold the first sentiment task in flight until every round has fanned
	// out: the queue saturates and the last rounds are rejected.
	require.Eventually(t, func() bool { return provider.Calls() >= 8 }, 2*time.Second, time.Millisecond)
	close(gate)

	// Exactly one sentiment reply per batch regardless: queued tasks resolve
	// normally, rejected ones were substituted with fallbacks.
	sentiment := core.EventType(analysis.KindSentiment)
	invalid := 0
	for i := 0; i < len(steps); i++ {
		ev := recvEventOfType(t, orch, sentiment)
		if !ev.Data.(analysis.Result).Valid {
			invalid++
		}
	}
	assert.GreaterOrEqual(t, invalid, 2, "saturated rounds should degrade to fallbacks")
	assertNoEventOfType(t, orch, sentiment, 100*time.Millisecond)
}

func TestOrchestrator_SortModeForwardedToProvider(t *testing.T) {
	var gotSort core.SortMode
	done := make(chan struct{})
	provider := testutil.ProviderFunc(func(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error) {
		gotSort = sortBy
		close(done)
		b := core.NewResultBatch(query, sortBy, 0, nil)
		return &b, nil
	})
	orch := startSession(t, provider)

	send(orch, `{"type":"start_search","query":"q","sortBy":"popularity"}`)

	select {
	case <-done:
		assert.Equal(t, core.SortPopularity, gotSort)
	case <-time.After(time.Second):
		t.Fatal("provider not called")
	}
}
