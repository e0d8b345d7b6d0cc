// Package workerpool runs background tasks on a fixed number of goroutines.
// The dashboard uses it for exports so a slow disk never holds a request.
//
//	pool := workerpool.New(2, 8)
//	defer pool.Shutdown(ctx)
//
//	if err := pool.Submit(func(ctx context.Context) { write(ctx) }); errors.Is(err, workerpool.ErrPoolFull) {
//	    // answer 429
//	}
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/shashiranjanraj/platter/pkg/logger"
)

var ErrPoolFull = errors.New("workerpool: pool is full")

var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Task receives a context that is cancelled when Shutdown gives up
// waiting.
type Task func(ctx context.Context)

type Pool struct {
	tasks  chan Task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New starts size workers behind a queue of queue pending tasks.
func New(size, queue int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{tasks: make(chan Task, queue), ctx: ctx, cancel: cancel}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit never blocks: a full queue gives ErrPoolFull.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrPoolFull
	}
}

// Pending is the number of queued tasks not yet picked up.
func (p *Pool) Pending() int { return len(p.tasks) }

// Shutdown stops accepting tasks and waits for queued ones to finish. If
// ctx ends first, running tasks see their context cancelled and Shutdown
// returns ctx's error once they return.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		p.run(t)
	}
}

func (p *Pool) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()
	t(p.ctx)
}
