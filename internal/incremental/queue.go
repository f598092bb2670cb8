package incremental

import (
	"sync"
	"time"
)

// UpdateQueue coalesces change notifications and hands them to a process
// callback after a quiet period. Duplicate notifications for one path
// collapse; the newest wins (use_newer strategy). At most one batch is in
// flight at a time, and at most batchSize changes leave the queue per
// flush. Leftover entries reschedule themselves.
type UpdateQueue struct {
	delay     time.Duration
	batchSize int
	process   func([]Change)

	// flushMu serializes batch processing; at most one batch is ever in
	// flight.
	flushMu sync.Mutex

	mu      sync.Mutex
	pending map[string]Change
	order   []string
	timer   *time.Timer
	closed  bool
}

// NewUpdateQueue creates a queue flushing to process.
func NewUpdateQueue(delay time.Duration, batchSize int, process func([]Change)) *UpdateQueue {
	if batchSize <= 0 {
		batchSize = DefaultConfig().UpdateBatchSize
	}
	return &UpdateQueue{
		delay:     delay,
		batchSize: batchSize,
		process:   process,
		pending:   make(map[string]Change),
	}
}

// Enqueue queues a change and resets the quiet-period timer. A change for
// an already queued path replaces the earlier one in place, keeping its
// original position in the flush order.
func (q *UpdateQueue) Enqueue(c Change) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if _, exists := q.pending[c.Path]; !exists {
		q.order = append(q.order, c.Path)
	}
	q.pending[c.Path] = c

	q.resetTimerLocked()
}

// Len returns the number of queued paths.
func (q *UpdateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush processes every queued change immediately, bypassing the quiet
// period and waiting out any in-flight batch. On return the queue is
// empty unless changes arrived concurrently.
func (q *UpdateQueue) Flush() {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.mu.Unlock()

	for {
		q.flushMu.Lock()
		batch := q.takeBatch()
		if len(batch) == 0 {
			q.flushMu.Unlock()
			return
		}
		q.process(batch)
		q.flushMu.Unlock()
	}
}

// Close stops the timer and drops all queued changes. The queue accepts
// nothing after Close.
func (q *UpdateQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.pending = make(map[string]Change)
	q.order = nil
}

func (q *UpdateQueue) resetTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.delay, q.flush)
}

// flush drains one batch and runs the callback. A timer fire that lands
// while another batch is processing blocks on flushMu and runs after it,
// so batches stay strictly sequential. Leftovers reschedule themselves.
func (q *UpdateQueue) flush() {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	batch := q.takeBatch()
	if len(batch) == 0 {
		return
	}
	q.process(batch)

	q.mu.Lock()
	if len(q.pending) > 0 && !q.closed {
		q.resetTimerLocked()
	}
	q.mu.Unlock()
}

// takeBatch pops up to batchSize changes in enqueue order.
func (q *UpdateQueue) takeBatch() []Change {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.pending) == 0 {
		q.timer = nil
		return nil
	}

	n := len(q.order)
	if n > q.batchSize {
		n = q.batchSize
	}
	batch := make([]Change, 0, n)
	for _, path := range q.order[:n] {
		batch = append(batch, q.pending[path])
		delete(q.pending, path)
	}
	q.order = q.order[n:]
	q.timer = nil
	return batch
}
