package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsrelay/newsrelay/core"
)

type stubAnalyzer struct {
	kind Kind
	fn   func(ctx context.Context, task Task) (any, error)
}

func (s *stubAnalyzer) Kind() Kind { return s.kind }

func (s *stubAnalyzer) Analyze(ctx context.Context, task Task) (any, error) {
	return s.fn(ctx, task)
}

func collectReplies() (func(Reply), <-chan Reply) {
	ch := make(chan Reply, 16)
	return func(r Reply) { ch <- r }, ch
}

func waitReply(t *testing.T, ch <-chan Reply) Reply {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker reply")
		return Reply{}
	}
}

func TestWorker_ValidResult(t *testing.T) {
	emit, replies := collectReplies()
	w := NewWorker(&stubAnalyzer{kind: KindWordStats, fn: func(context.Context, Task) (any, error) {
		return WordStats{TotalWords: 7}, nil
	}}, emit)
	w.Start()
	defer w.Stop()

	require.True(t, w.Submit(Task{Kind: KindWordStats, Gen: 3}))

	r := waitReply(t, replies)
	require.Nil(t, r.Crash)
	assert.Equal(t, KindWordStats, r.Result.Kind)
	assert.True(t, r.Result.Valid)
	assert.Equal(t, uint64(3), r.Result.Gen)
	assert.Equal(t, WordStats{TotalWords: 7}, r.Result.Data)
}

func TestWorker_CollaboratorErrorBecomesFallback(t *testing.T) {
	emit, replies := collectReplies()
	w := NewWorker(&stubAnalyzer{kind: KindSentiment, fn: func(context.Context, Task) (any, error) {
		return nil, errors.New("scoring backend down")
	}}, emit)
	w.Start()
	defer w.Stop()

	require.True(t, w.Submit(Task{Kind: KindSentiment, Gen: 1}))

	r := waitReply(t, replies)
	require.Nil(t, r.Crash, "collaborator errors never surface as crashes")
	assert.False(t, r.Result.Valid)
	assert.Equal(t, SentimentStats{Label: "neutral"}, r.Result.Data)
}

func TestWorker_NilPayloadBecomesFallback(t *testing.T) {
	emit, replies := collectReplies()
	w := NewWorker(&stubAnalyzer{kind: KindReadability, fn: func(context.Context, Task) (any, error) {
		return nil, nil
	}}, emit)
	w.Start()
	defer w.Stop()

	require.True(t, w.Submit(Task{Kind: KindReadability}))

	r := waitReply(t, replies)
	assert.False(t, r.Result.Valid)
}

func TestWorker_PanicBecomesCrashReply(t *testing.T) {
	emit, replies := collectReplies()
	w := NewWorker(&stubAnalyzer{kind: KindSourceProfile, fn: func(context.Context, Task) (any, error) {
		panic(core.ErrTimeout)
	}}, emit)
	w.Start()

	require.True(t, w.Submit(Task{Kind: KindSourceProfile}))

	r := waitReply(t, replies)
	require.NotNil(t, r.Crash)
	assert.Equal(t, KindSourceProfile, r.Crash.Kind)
	assert.Equal(t, core.ErrTimeout, r.Crash.Reason)
	assert.NotEmpty(t, r.Crash.Stack)

	// The goroutine exits after a crash; further submits are rejected.
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker goroutine did not exit after crash")
	}
	assert.False(t, w.Submit(Task{Kind: KindSourceProfile}))
}

func TestWorker_ExactlyOneReplyPerTask(t *testing.T) {
	emit, replies := collectReplies()
	w := NewWorker(&stubAnalyzer{kind: KindWordStats, fn: func(context.Context, Task) (any, error) {
		return WordStats{}, nil
	}}, emit)
	w.Start()
	defer w.Stop()

	for i := 0; i < 3; i++ {
		require.True(t, w.Submit(Task{Kind: KindWordStats}))
	}
	for i := 0; i < 3; i++ {
		waitReply(t, replies)
	}

	select {
	case r := <-replies:
		t.Fatalf("unexpected extra reply: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFallback_Payloads(t *testing.T) {
	for _, kind := range Kinds() {
		r := Fallback(kind, 9)
		assert.Equal(t, kind, r.Kind)
		assert.False(t, r.Valid)
		assert.Equal(t, uint64(9), r.Gen)
		assert.NotNil(t, r.Data, "fallback for %s must carry a well-defined payload", kind)
	}
}
