package analysis

import (
	"context"
	"runtime"
	"time"

	"github.com/newsrelay/newsrelay/logging"
)

// Analyzer computes one analytic dimension over a task by invoking its
// scoring collaborator. Implementations return the kind-specific payload or
// an error; they never deliver replies themselves.
type Analyzer interface {
	Kind() Kind
	Analyze(ctx context.Context, task Task) (any, error)
}

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	// Timeout bounds one collaborator invocation.
	Timeout time.Duration
	// QueueSize buffers pending tasks. The orchestrator dispatches at most
	// one task per kind per fetch cycle, so a small buffer suffices.
	QueueSize int
	// Logger receives per-task diagnostics.
	Logger logging.Logger
}

// Worker runs one analyzer on a dedicated goroutine. It is stateless between
// tasks and always produces exactly one Reply per accepted task: a valid
// result, a tagged fallback on collaborator failure, or a Crash on panic.
// After a crash the goroutine exits; the owning session decides whether to
// start a replacement (see RestartPolicy).
type Worker struct {
	analyzer Analyzer
	emit     func(Reply)
	tasks    chan Task
	timeout  time.Duration
	logger   logging.Logger
	done     chan struct{}
}

// NewWorker creates a worker for the analyzer. Replies are delivered through
// emit, which must be safe to call from the worker goroutine.
func NewWorker(analyzer Analyzer, emit func(Reply), optFns ...func(o *WorkerOptions)) *Worker {
	opts := WorkerOptions{
		Timeout:   10 * time.Second,
		QueueSize: 4,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Worker{
		analyzer: analyzer,
		emit:     emit,
		tasks:    make(chan Task, opts.QueueSize),
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}
}

// Kind returns the worker's analytic kind.
func (w *Worker) Kind() Kind { return w.analyzer.Kind() }

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.loop()
}

// Submit enqueues a task, reporting false if the queue is full or the worker
// has stopped. The worker emits nothing for a rejected task; the caller must
// substitute the reply itself.
func (w *Worker) Submit(task Task) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.tasks <- task:
		return true
	default:
		w.logger.Warn("worker queue full, task dropped", "kind", w.Kind(), "gen", task.Gen)
		return false
	}
}

// Stop closes the task queue; the goroutine drains pending tasks and exits.
func (w *Worker) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.tasks)
	}
}

// Done is closed when the worker goroutine has exited, whether by Stop or by
// crash.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) loop() {
	defer close(w.done)
	for task := range w.tasks {
		if crashed := w.runOne(task); crashed {
			return
		}
	}
}

// runOne executes a single task, translating every collaborator failure into
// a tagged fallback result. A panic becomes a Crash reply and stops the
// worker.
func (w *Worker) runOne(task Task) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			crashed = true
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			w.logger.Error("worker crashed", "kind", w.Kind(), "reason", r)
			w.emit(Reply{Kind: w.Kind(), Crash: &Crash{Kind: w.Kind(), Reason: r, Stack: stack[:n]}})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	started := time.Now()
	payload, err := w.analyzer.Analyze(ctx, task)
	if err != nil || payload == nil {
		if err != nil {
			w.logger.Warn("analyzer failed, substituting fallback", "kind", w.Kind(), "error", err)
		}
		w.emit(Reply{Kind: w.Kind(), Result: Fallback(w.Kind(), task.Gen)})
		return false
	}

	w.logger.Debug("analyzer completed", "kind", w.Kind(), "duration", time.Since(started))
	w.emit(Reply{Kind: w.Kind(), Result: Result{Kind: w.Kind(), Valid: true, Gen: task.Gen, Data: payload}})
	return false
}
