package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

type WorkerPool struct {
	name        string
	taskQueue   chan Task
	taskTimeout time.Duration
	wg          sync.WaitGroup
	isClosing   atomic.Bool // thread-safe value
	dropped     atomic.Int64
	onDrop      func()
}

type Option func(*WorkerPool)

// WithTaskTimeout bounds how long a single task may run.
func WithTaskTimeout(d time.Duration) Option {
	return func(wp *WorkerPool) { wp.taskTimeout = d }
}

// WithQueueSize overrides the default buffer of pending tasks.
func WithQueueSize(n int) Option {
	return func(wp *WorkerPool) { wp.taskQueue = make(chan Task, n) }
}

// WithDropHook is called every time a task is dropped.
func WithDropHook(fn func()) Option {
	return func(wp *WorkerPool) { wp.onDrop = fn }
}

func NewWorkerPool(name string, size int, opts ...Option) *WorkerPool {
	wp := &WorkerPool{
		name:        name,
		taskQueue:   make(chan Task, 1000), // Buffer for 1000 pending tasks
		taskTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(wp)
	}
	if size < 1 {
		size = 1
	}

	// Start the workers
	for range size {
		wp.wg.Add(1) // add to WaitGroup
		go wp.startWorker()
	}

	return wp
}

func (wp *WorkerPool) startWorker() {
	defer wp.wg.Done() // signal when worker finished
	for task := range wp.taskQueue {
		wp.run(task)
	}
}

func (wp *WorkerPool) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), wp.taskTimeout)
	defer cancel()
	if err := task(ctx); err != nil { // run task
		log.Warn().Err(err).Str("pool", wp.name).Msg("worker task failed")
	}
}

// Submit enqueues t without blocking. It reports false when the task was
// dropped because the queue is full or the pool is shutting down.
func (wp *WorkerPool) Submit(t Task) bool {
	if wp.isClosing.Load() {
		log.Warn().Str("pool", wp.name).Msg("task submitted during shutdown, dropping")
		wp.drop()
		return false
	}
	select {
	case wp.taskQueue <- t: // send task to worker pool
		return true
	default:
		log.Warn().Str("pool", wp.name).Msg("task queue full, dropping task")
		wp.drop()
		return false
	}
}

func (wp *WorkerPool) drop() {
	wp.dropped.Add(1)
	if wp.onDrop != nil {
		wp.onDrop()
	}
}

// Dropped returns how many tasks were rejected so far.
func (wp *WorkerPool) Dropped() int64 {
	return wp.dropped.Load()
}

// Shutdown closes the queue and waits for workers to finish
func (wp *WorkerPool) Shutdown() {
	if !wp.isClosing.CompareAndSwap(false, true) {
		return
	}
	close(wp.taskQueue) // Stop accepting new tasks
	wp.wg.Wait()        // Wait for all active workers to finish tasks
}
