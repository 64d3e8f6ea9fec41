// Package queue serializes requests against a single resident session
// worker, guaranteeing at most one request is ever in flight. Grounded on
// the reference CLI's Session.pending map pattern, generalized from a
// request-ID keyed dispatch table into an explicit FIFO worker loop.
package queue

import "github.com/flutter-tools/fsd/internal/model"

// Handler executes one request against the session. It is invoked on the
// queue's single worker goroutine, never concurrently.
type Handler func(req *model.Request)

// Queue is a single-consumer FIFO. Submit never blocks the caller waiting
// for execution; it only blocks briefly to enqueue.
type Queue struct {
	handler Handler
	items   chan *model.Request
	done    chan struct{}
}

// New starts the queue's worker goroutine immediately, draining items as
// they arrive and calling handler exactly once per request in submission
// order.
func New(handler Handler) *Queue {
	q := &Queue{
		handler: handler,
		items:   make(chan *model.Request, 256),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for req := range q.items {
		q.handler(req)
	}
}

// Submit enqueues req for execution and returns immediately; the caller
// awaits completion via req.Wait().
func (q *Queue) Submit(req *model.Request) {
	q.items <- req
}

// Shutdown closes the queue. Any request already enqueued but not yet
// executed is drained as model.ErrInvalidState by the caller's own
// handler logic (the queue itself does not inspect requests); callers
// should stop Submitting before calling Shutdown.
func (q *Queue) Shutdown() {
	close(q.items)
	<-q.done
}
