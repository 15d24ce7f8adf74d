package utils

import "sync"

// WorkerPool runs submitted tasks on a fixed set of workers over a
// bounded queue. Used where fan-out must not spawn unbounded goroutines,
// e.g. status snapshot collection.
type WorkerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

// NewWorkerPool starts a pool with the given worker count and queue size.
func NewWorkerPool(workers, queueSize int) *WorkerPool {
	pool := &WorkerPool{
		tasks: make(chan func(), queueSize),
	}

	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.run()
	}

	return pool
}

func (wp *WorkerPool) run() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		task()
	}
}

// Submit enqueues a task, blocking while the queue is full.
func (wp *WorkerPool) Submit(task func()) {
	wp.tasks <- task
}

// TrySubmit enqueues a task without blocking. Returns false if the queue
// is full and the task was not accepted.
func (wp *WorkerPool) TrySubmit(task func()) bool {
	select {
	case wp.tasks <- task:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting tasks and waits for in-flight ones to finish.
func (wp *WorkerPool) Shutdown() {
	close(wp.tasks)
	wp.wg.Wait()
}
