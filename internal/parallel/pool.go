// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a fixed set of goroutines pulling jobs from a shared queue.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queue   chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), max(workers*2, 8)),
		done:    make(chan struct{}),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.queue:
			job()
		case <-p.done:
			// Finish what was queued before Close.
			for {
				select {
				case job := <-p.queue:
					job()
				default:
					return
				}
			}
		}
	}
}

// ExecuteAll runs every job and waits for all of them to complete.
// On a closed pool the jobs run on the calling goroutine.
func (p *WorkerPool) ExecuteAll(jobs []func()) {
	if len(jobs) == 0 {
		return
	}
	if !p.running.Load() {
		for _, job := range jobs {
			job()
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for _, job := range jobs {
		wrapped := func() {
			defer wg.Done()
			job()
		}
		select {
		case p.queue <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	wg.Wait()
}

// Map calls fn(i) for every i in [0, n) on the pool and waits.
func (p *WorkerPool) Map(n int, fn func(i int)) {
	jobs := make([]func(), n)
	for i := range jobs {
		jobs[i] = func() { fn(i) }
	}
	p.ExecuteAll(jobs)
}

// Close stops the pool after queued jobs have run. It is safe to call
// multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool still accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}
