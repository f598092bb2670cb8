package incremental

import (
	"sync"
	"testing"
	"time"
)

// batchCollector records batches handed to the queue callback.
type batchCollector struct {
	mu      sync.Mutex
	batches [][]Change
}

func (c *batchCollector) process(batch []Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]Change, len(batch))
	copy(cp, batch)
	c.batches = append(c.batches, cp)
}

func (c *batchCollector) snapshot() [][]Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]Change, len(c.batches))
	copy(out, c.batches)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestQueueCoalescesSamePath(t *testing.T) {
	c := &batchCollector{}
	q := NewUpdateQueue(20*time.Millisecond, 10, c.process)
	defer q.Close()

	q.Enqueue(Change{Path: "a.go", Type: ChangeAdded, ContentHash: "h1"})
	q.Enqueue(Change{Path: "a.go", Type: ChangeModified, ContentHash: "h2"})
	q.Enqueue(Change{Path: "b.go", Type: ChangeAdded})

	if q.Len() != 2 {
		t.Errorf("expected 2 queued paths, got %d", q.Len())
	}

	waitFor(t, func() bool { return len(c.snapshot()) == 1 })

	batch := c.snapshot()[0]
	if len(batch) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(batch))
	}
	// Newest change for a.go wins, in its original position.
	if batch[0].Path != "a.go" || batch[0].Type != ChangeModified || batch[0].ContentHash != "h2" {
		t.Errorf("unexpected first entry %+v", batch[0])
	}
	if batch[1].Path != "b.go" {
		t.Errorf("unexpected second entry %+v", batch[1])
	}
}

func TestQueueDebounceResets(t *testing.T) {
	c := &batchCollector{}
	q := NewUpdateQueue(60*time.Millisecond, 10, c.process)
	defer q.Close()

	// Keep enqueueing faster than the quiet period; nothing should flush.
	for i := 0; i < 4; i++ {
		q.Enqueue(Change{Path: "a.go", Type: ChangeModified})
		time.Sleep(20 * time.Millisecond)
	}
	if got := len(c.snapshot()); got != 0 {
		t.Errorf("flushed %d batches during burst", got)
	}

	waitFor(t, func() bool { return len(c.snapshot()) == 1 })
}

func TestQueueBatchSizeCap(t *testing.T) {
	c := &batchCollector{}
	q := NewUpdateQueue(10*time.Millisecond, 3, c.process)
	defer q.Close()

	paths := []string{"a.go", "b.go", "c.go", "d.go", "e.go"}
	for _, p := range paths {
		q.Enqueue(Change{Path: p, Type: ChangeAdded})
	}

	waitFor(t, func() bool {
		total := 0
		for _, b := range c.snapshot() {
			total += len(b)
		}
		return total == len(paths)
	})

	batches := c.snapshot()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != 3 || len(batches[1]) != 2 {
		t.Errorf("unexpected batch sizes %d, %d", len(batches[0]), len(batches[1]))
	}
}

func TestQueueFlushImmediate(t *testing.T) {
	c := &batchCollector{}
	q := NewUpdateQueue(time.Hour, 10, c.process)
	defer q.Close()

	q.Enqueue(Change{Path: "a.go", Type: ChangeAdded})
	q.Flush()

	if got := len(c.snapshot()); got != 1 {
		t.Fatalf("expected 1 batch after Flush, got %d", got)
	}
	if q.Len() != 0 {
		t.Errorf("queue not drained, %d left", q.Len())
	}
}

func TestQueueFlushDrainsAllBatches(t *testing.T) {
	c := &batchCollector{}
	q := NewUpdateQueue(time.Hour, 2, c.process)
	defer q.Close()

	// Backlog of more than one batch; Flush must keep going past the cap.
	for _, p := range []string{"a.go", "b.go", "c.go", "d.go", "e.go"} {
		q.Enqueue(Change{Path: p, Type: ChangeAdded})
	}
	q.Flush()

	if q.Len() != 0 {
		t.Fatalf("queue not drained, %d left", q.Len())
	}
	total := 0
	for _, b := range c.snapshot() {
		total += len(b)
	}
	if total != 5 {
		t.Errorf("expected 5 changes processed, got %d", total)
	}
}

func TestQueueCloseDropsPending(t *testing.T) {
	c := &batchCollector{}
	q := NewUpdateQueue(10*time.Millisecond, 10, c.process)

	q.Enqueue(Change{Path: "a.go", Type: ChangeAdded})
	q.Close()
	q.Enqueue(Change{Path: "b.go", Type: ChangeAdded})

	time.Sleep(50 * time.Millisecond)
	if got := len(c.snapshot()); got != 0 {
		t.Errorf("closed queue still flushed %d batches", got)
	}
	if q.Len() != 0 {
		t.Errorf("closed queue holds %d entries", q.Len())
	}
}

func TestQueueSequentialBatches(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0
	processed := 0

	q := NewUpdateQueue(5*time.Millisecond, 2, func(batch []Change) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(15 * time.Millisecond)

		mu.Lock()
		inFlight--
		processed += len(batch)
		mu.Unlock()
	})
	defer q.Close()

	for _, p := range []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go"} {
		q.Enqueue(Change{Path: p, Type: ChangeAdded})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return processed == 6
	})

	mu.Lock()
	defer mu.Unlock()
	if maxInFlight != 1 {
		t.Errorf("batches overlapped: max in flight %d", maxInFlight)
	}
}
