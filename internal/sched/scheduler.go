package sched

import (
	"container/heap"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned when scheduling against a stopped scheduler.
var ErrStopped = errors.New("scheduler is stopped")

// task is one recurring job ordered by its next fire time.
type task struct {
	id       string
	next     time.Time
	interval time.Duration
	fn       func()
	index    int
}

type taskHeap []*task

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].next.Before(h[j].next) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[0 : n-1]
	return t
}

// Scheduler fires recurring callbacks off a single min-heap loop. It
// drives the dashboard's refresh tick; callbacks must be quick or hand
// off to their own goroutine.
type Scheduler struct {
	mu      sync.Mutex
	heap    taskHeap
	tasks   map[string]*task
	wakeup  chan struct{}
	stopCh  chan struct{}
	stopped bool
}

// NewScheduler creates a stopped-idle scheduler; call Start to run it.
func NewScheduler() *Scheduler {
	s := &Scheduler{
		heap:   make(taskHeap, 0),
		tasks:  make(map[string]*task),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start runs the scheduler loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Stop halts the loop. Already-fired callbacks finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()
}

// Every schedules fn to run every interval, first firing one interval
// from now. Scheduling an existing id replaces its task.
func (s *Scheduler) Every(id string, interval time.Duration, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	if existing, ok := s.tasks[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.tasks, id)
	}

	t := &task{id: id, next: time.Now().Add(interval), interval: interval, fn: fn}
	heap.Push(&s.heap, t)
	s.tasks[id] = t

	if s.heap[0] == t {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// Cancel removes a recurring task.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, t.index)
	delete(s.tasks, id)
	return true
}

// Len returns the number of scheduled tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}

		wait := time.Hour
		if s.heap.Len() > 0 {
			next := s.heap[0]
			wait = time.Until(next.next)

			if wait <= 0 {
				// Fire and re-arm in place; the heap keys on next.
				fn := next.fn
				next.next = time.Now().Add(next.interval)
				heap.Fix(&s.heap, next.index)
				s.mu.Unlock()

				go fn()
				continue
			}
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}
