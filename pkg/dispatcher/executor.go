package dispatcher

import (
	"context"
	"sync"
)

// Task is one unit of delivery. Abort is called instead of Run when an
// executor discards a task it had accepted.
type Task interface {
	Run()
	Abort(err error)
}

// Executor is an execution context handlers can be routed to.
type Executor interface {
	// Execute enqueues t and returns without waiting for it to run.
	Execute(t Task) error
	// Serial reports whether tasks run one at a time in FIFO order.
	Serial() bool
	// Close stops accepting tasks and releases the executor's goroutines.
	Close() error
}

// queueExecutor runs tasks from an unbounded FIFO on a fixed number of
// goroutines, so Execute never blocks the poster.
type queueExecutor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	closed  bool
	workers int
	wg      sync.WaitGroup
}

func newQueueExecutor(workers int) *queueExecutor {
	q := &queueExecutor{workers: workers}
	q.cond = sync.NewCond(&q.mu)
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.drain(nil)
		}()
	}
	return q
}

// NewSerialExecutor runs tasks one at a time on a dedicated goroutine.
func NewSerialExecutor() Executor {
	return newQueueExecutor(1)
}

// NewPoolExecutor runs tasks on workers goroutines.
func NewPoolExecutor(workers int) Executor {
	if workers < 1 {
		workers = 1
	}
	return newQueueExecutor(workers)
}

func (q *queueExecutor) Execute(t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrExecutorClosed
	}
	q.queue = append(q.queue, t)
	q.cond.Signal()
	return nil
}

func (q *queueExecutor) Serial() bool {
	return q.workers <= 1
}

// Close lets the workers finish everything already queued, then returns.
// It must not be called from a task running on the same executor.
func (q *queueExecutor) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// drain runs tasks until the queue is closed and empty, or stop reports true.
func (q *queueExecutor) drain(stop func() bool) {
	for {
		q.mu.Lock()
		for len(q.queue) == 0 && !q.closed && (stop == nil || !stop()) {
			q.cond.Wait()
		}
		if len(q.queue) == 0 || (stop != nil && stop()) {
			q.mu.Unlock()
			return
		}
		t := q.queue[0]
		q.queue[0] = nil
		q.queue = q.queue[1:]
		q.mu.Unlock()

		t.Run()
	}
}

func (q *queueExecutor) pending() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	rest := q.queue
	q.queue = nil
	return rest
}

// Looper is a serial executor driven by whichever goroutine calls Run,
// typically the program's main goroutine.
type Looper struct {
	q *queueExecutor
}

func NewLooper() *Looper {
	return &Looper{q: newQueueExecutor(0)}
}

func (l *Looper) Execute(t Task) error { return l.q.Execute(t) }

func (l *Looper) Serial() bool { return true }

// Run executes queued tasks on the calling goroutine until ctx is done or the
// looper is closed and drained.
func (l *Looper) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		l.q.mu.Lock()
		l.q.cond.Broadcast()
		l.q.mu.Unlock()
	})
	defer stop()

	l.q.drain(func() bool { return ctx.Err() != nil })
}

// Close stops accepting tasks and aborts whatever was never run.
func (l *Looper) Close() error {
	_ = l.q.Close()
	for _, t := range l.q.pending() {
		t.Abort(ErrExecutorClosed)
	}
	return nil
}
