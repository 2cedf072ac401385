package wave

import (
	"container/heap"
	"context"
	"runtime"
	"sync"
)

// Priority orders queued render tasks. Lower values run first. This is a
// scheduling preference, not a strict ordering guarantee: a worker that is
// free when a low-priority task is the only one queued will run it.
type Priority int

const (
	PriorityVisible Priority = iota
	PriorityPrefetchNear
	PriorityPrefetchFar
)

type task struct {
	priority Priority
	seq      uint64 // insertion order, breaks priority ties FIFO
	run      func(context.Context)
}

type taskHeap []task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Pool runs render tasks on a bounded set of workers, highest priority first.
// Tasks receive a context that is cancelled when the pool closes; a closing
// pool still hands every queued task to a worker so that its future resolves.
type Pool struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  taskHeap
	seq    uint64
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool with the given number of workers. A non-positive
// count defaults to NumCPU-1, minimum one.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{ctx: ctx, cancel: cancel}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

// Submit queues fn at the given priority. Submitting to a closed pool runs fn
// immediately with a cancelled context so its future still resolves.
func (p *Pool) Submit(pri Priority, fn func(context.Context)) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		fn(p.ctx)
		return
	}
	p.seq++
	heap.Push(&p.queue, task{priority: pri, seq: p.seq, run: fn})
	p.mu.Unlock()
	p.cond.Signal()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		t := heap.Pop(&p.queue).(task)
		p.mu.Unlock()
		t.run(p.ctx)
	}
}

// Close cancels the task context, drains the queue, and waits for workers to
// exit. Queued tasks still run, but see a cancelled context and bail fast.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.cond.Broadcast()
	p.wg.Wait()
}
