package stream

import (
	"context"
	"slices"
	"sync"
)

// Task is an awaitable handle for one background store operation.
type Task struct {
	name string
	done chan struct{}
	err  error
}

// Name describes the operation, e.g. "load 3,-1".
func (t *Task) Name() string { return t.name }

// Done is closed once the operation has finished and its completion is queued.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the operation error. Only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns handles for every store operation that has not yet been
// applied. The slice is a copy.
func (m *Manager) Pending() []*Task {
	return slices.Clone(m.tasks)
}

// inbox collects completion callbacks produced on task goroutines. They are
// run later on the goroutine that owns the Manager.
type inbox struct {
	mu    sync.Mutex
	items []func()
}

func (b *inbox) push(fn func()) {
	b.mu.Lock()
	b.items = append(b.items, fn)
	b.mu.Unlock()
}

func (b *inbox) take() []func() {
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()
	return items
}

// spawn runs work in the background. apply receives its error on the owner
// goroutine during the next drain.
func (m *Manager) spawn(name string, work func(ctx context.Context) error, apply func(err error)) *Task {
	t := &Task{name: name, done: make(chan struct{})}
	m.tasks = append(m.tasks, t)
	go func() {
		err := work(context.Background())
		m.inbox.push(func() { apply(err) })
		t.err = err
		close(t.done)
	}()
	return t
}

// drain applies queued completions and forgets finished tasks.
func (m *Manager) drain() {
	for _, fn := range m.inbox.take() {
		fn()
	}
	live := m.tasks[:0]
	for _, t := range m.tasks {
		select {
		case <-t.done:
		default:
			live = append(live, t)
		}
	}
	clear(m.tasks[len(live):])
	m.tasks = live
}
