package loop

import "sync"

// Queue is an unbounded multi-producer FIFO of commands with a single
// consumer. Push never blocks on capacity.
type Queue struct {
	mu    sync.Mutex
	items []func()
	spare []func()
}

// Push appends fn. Nil is ignored.
func (q *Queue) Push(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, fn)
	q.mu.Unlock()
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain runs queued commands in push order until the queue is observed
// empty. Commands pushed while draining run in a later batch of the same
// call. It returns the number of commands run.
//
// If a command panics, the commands after it in the batch go back to the
// front of the queue before the panic propagates.
//
// Drain must only be called from the consumer goroutine.
func (q *Queue) Drain() int {
	var batch []func()
	n, next := 0, 0
	defer func() {
		if next < len(batch) {
			q.requeue(batch[next:])
		}
	}()
	for {
		batch, next = q.swap(), 0
		if len(batch) == 0 {
			return n
		}
		for next < len(batch) {
			fn := batch[next]
			batch[next] = nil
			next++
			n++
			fn()
		}
		q.recycle(batch)
	}
}

// requeue puts rest ahead of anything pushed since the batch was taken.
func (q *Queue) requeue(rest []func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]func(), 0, len(rest)+len(q.items))
	items = append(items, rest...)
	q.items = append(items, q.items...)
}

// swap takes the pending batch, handing the queue the spare buffer.
func (q *Queue) swap() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.items
	q.items = q.spare[:0]
	q.spare = nil
	return batch
}

func (q *Queue) recycle(batch []func()) {
	q.mu.Lock()
	if q.spare == nil {
		q.spare = batch[:0]
	}
	q.mu.Unlock()
}
