package delayserver

import (
	"sync"

	"github.com/eapache/queue"
)

// workerPool is an unbounded FIFO of jobs, consumed by a fixed number of
// workers (see work).
type workerPool struct {
	mu     sync.Mutex
	cond   sync.Cond
	jobs   *queue.Queue
	closed bool
}

func newWorkerPool() *workerPool {
	x := &workerPool{jobs: queue.New()}
	x.cond.L = &x.mu
	return x
}

// submit enqueues job, returning false if the pool is closed.
func (x *workerPool) submit(job func()) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return false
	}
	x.jobs.Add(job)
	x.cond.Signal()
	return true
}

// close stops accepting jobs. Workers drain any already queued, then exit.
func (x *workerPool) close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	x.cond.Broadcast()
}

// pending returns the number of queued jobs, not yet taken by a worker.
func (x *workerPool) pending() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.jobs.Length()
}

// work runs jobs until the pool is closed and drained.
func (x *workerPool) work() {
	for {
		job, ok := x.take()
		if !ok {
			return
		}
		job()
	}
}

func (x *workerPool) take() (func(), bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for x.jobs.Length() == 0 {
		if x.closed {
			return nil, false
		}
		x.cond.Wait()
	}
	return x.jobs.Remove().(func()), true
}
