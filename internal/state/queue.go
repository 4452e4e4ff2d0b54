package state

import "sync"

type job struct {
	run  func()
	done chan struct{}
}

// queue runs jobs one at a time in submission order on its own goroutine.
// push never blocks.
type queue struct {
	mu      sync.Mutex
	jobs    []job
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

func newQueue() *queue {
	q := &queue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.loop()
	return q
}

// push enqueues run and returns a channel closed once it has finished.
// After close, nothing is enqueued and ok is false.
func (q *queue) push(run func()) (done <-chan struct{}, ok bool) {
	ch := make(chan struct{})
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		close(ch)
		return ch, false
	}
	q.jobs = append(q.jobs, job{run: run, done: ch})
	q.mu.Unlock()
	q.signal()
	return ch, true
}

func (q *queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// close stops accepting jobs; already queued jobs still run.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) loop() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		j := q.jobs[0]
		q.jobs[0] = job{}
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		j.run()
		close(j.done)
	}
}
