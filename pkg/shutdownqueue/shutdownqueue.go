// Package shutdownqueue is the process-wide LIFO list of cleanup steps that
// main drains once on exit. Tasks run once, newest first; panics are
// recovered and errors are joined.
package shutdownqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task should honor ctx and return an error if it cannot finish in time.
type Task func(ctx context.Context) error

type entry struct {
	name string
	task Task
}

type queue struct {
	mu     sync.Mutex
	tasks  []entry
	closed bool
}

var q = &queue{}

// Add registers an anonymous task. Nil tasks and tasks added after Shutdown
// has started are ignored.
func Add(t Task) {
	AddNamed("", t)
}

// AddNamed registers t under name. Named tasks log their duration and
// outcome, and their errors are prefixed with the name.
func AddNamed(name string, t Task) {
	if t == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.tasks = append(q.tasks, entry{name: name, task: t})
}

// Shutdown drains the queue newest first. Later calls are no-ops. When ctx
// ends mid-drain the remaining tasks are skipped and ctx.Err is part of the
// returned error.
func Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	var errs []error

	for i := len(tasks) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("shutdown canceled: %w", ctx.Err()))
			break
		}

		err := tasks[i].run(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (e entry) run(ctx context.Context) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in shutdown task: %v", r)
		}

		if e.name == "" {
			return
		}

		if err != nil {
			slog.Error("shutdown task failed", "task", e.name, "duration", time.Since(start), "error", err)
			err = fmt.Errorf("%s: %w", e.name, err)

			return
		}

		slog.Info("shutdown task done", "task", e.name, "duration", time.Since(start))
	}()

	return e.task(ctx)
}
