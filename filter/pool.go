package filter

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolStopped is returned when work is submitted to a stopped pool
var ErrPoolStopped = errors.New("worker pool is stopped")

// workerPool runs submitted work on a fixed number of goroutines
type workerPool struct {
	workChan chan func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// mu orders sends against Stop so nothing is queued after done closes
	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int) WorkerPool {
	workers = max(workers, 1)

	pool := &workerPool{
		workChan: make(chan func(), workers*2),
		done:     make(chan struct{}),
	}

	for range workers {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

func (p *workerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case work := <-p.workChan:
			if work != nil {
				work()
			}
		case <-p.done:
			// Drain what was queued before Stop.
			for {
				select {
				case work := <-p.workChan:
					if work != nil {
						work()
					}
				default:
					return
				}
			}
		}
	}
}

// Submit queues work, blocking while the queue is full
func (p *workerPool) Submit(ctx context.Context, work func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.workChan <- work:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop gracefully stops the worker pool
func (p *workerPool) Stop(ctx context.Context) error {
	var err error

	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.done)
		p.mu.Unlock()

		finished := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(finished)
		}()

		select {
		case <-finished:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})

	return err
}
