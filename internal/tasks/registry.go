// Package tasks runs named periodic background tasks with cooperative
// cancellation. The poller loops and the stale sweeper are both built
// on it, so shutdown can stop and await every loop deterministically.
package tasks

import (
	"context"
	"log"
	"sync"
	"time"
)

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry owns a set of named periodic tasks.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*task)}
}

// Start launches a task that runs fn immediately and then once per
// interval until stopped. It reports whether a new task was started;
// a task with the same name already running makes Start a no-op.
func (r *Registry) Start(name string, interval time.Duration, fn func(ctx context.Context)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[name]; ok {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	r.tasks[name] = t

	go func() {
		defer close(t.done)

		runIteration(ctx, name, fn)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runIteration(ctx, name, fn)
			}
		}
	}()

	return true
}

// runIteration contains a single run of the task body. A panicking
// iteration is logged and the loop continues on its normal schedule.
func runIteration(ctx context.Context, name string, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("tasks: %s panicked: %v", name, rec)
		}
	}()
	if ctx.Err() != nil {
		return
	}
	fn(ctx)
}

// Stop cancels the named task and waits for its current iteration to
// finish. It reports whether the task was running.
func (r *Registry) Stop(name string) bool {
	r.mu.Lock()
	t, ok := r.tasks[name]
	if ok {
		delete(r.tasks, name)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// StopAll cancels every task and waits for all of them.
func (r *Registry) StopAll() {
	r.mu.Lock()
	stopped := make([]*task, 0, len(r.tasks))
	for name, t := range r.tasks {
		t.cancel()
		stopped = append(stopped, t)
		delete(r.tasks, name)
	}
	r.mu.Unlock()

	for _, t := range stopped {
		<-t.done
	}
}

// Running reports whether a task with the given name is active.
func (r *Registry) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[name]
	return ok
}

// Names returns the names of all active tasks.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		out = append(out, name)
	}
	return out
}
