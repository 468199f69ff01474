package fanout

import "context"

// Task is one fetch that fills a single key of the composite record.
type Task struct {
	Key      string
	Required bool

	fetch func(ctx context.Context) (any, error)
	then  func(v any) []Task
}

// TaskOption configures a Task.
type TaskOption func(*Task)

// Fetch builds a task that stores the result of fn under key.
func Fetch[T any](key string, fn func(ctx context.Context) (T, error), opts ...TaskOption) Task {
	t := Task{Key: key}
	if fn != nil {
		t.fetch = func(ctx context.Context) (any, error) {
			return fn(ctx)
		}
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// Required marks the key as gating readiness.
func Required() TaskOption {
	return func(t *Task) {
		t.Required = true
	}
}

// Then derives dependent tasks from a successful result. The children are
// counted before the parent is released, so an empty slice adds nothing and a
// failed parent spawns nothing. The record is not ready while a parent is
// unresolved, since its children may be required.
func Then[T any](fn func(v T) []Task) TaskOption {
	return func(t *Task) {
		t.then = func(v any) []Task {
			tv, ok := v.(T)
			if !ok {
				return nil
			}
			return fn(tv)
		}
	}
}
