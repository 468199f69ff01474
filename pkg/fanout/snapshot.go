package fanout

import (
	"encoding/json"
	"fmt"
	"sort"
)

// State is the lifecycle of one aggregation.
type State int32

const (
	StateIdle State = iota
	StateLoading
	// StateReady: every required key is present. Optional keys may still be pending.
	StateReady
	// StateIncomplete: all tasks resolved but at least one required key failed.
	StateIncomplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateIncomplete:
		return "incomplete"
	default:
		return "unknown"
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the names MarshalJSON writes.
func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "idle":
		*s = StateIdle
	case "loading":
		*s = StateLoading
	case "ready":
		*s = StateReady
	case "incomplete":
		*s = StateIncomplete
	default:
		return fmt.Errorf("fanout: unknown state %q", name)
	}
	return nil
}

// Snapshot is an immutable view of an aggregation at one point in time.
type Snapshot struct {
	Name      string
	State     State
	Ready     bool
	Published bool
	Pending   int
	Missing   []string
	Errors    map[string]error

	values map[string]any
}

// Has reports whether key resolved successfully.
func (s *Snapshot) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the resolved keys in sorted order.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrorMessages renders Errors as strings, or nil when nothing failed.
func (s *Snapshot) ErrorMessages() map[string]string {
	if len(s.Errors) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Errors))
	for k, err := range s.Errors {
		out[k] = err.Error()
	}
	return out
}

// Get returns the value stored under key when it resolved with type T.
func Get[T any](s *Snapshot, key string) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	v, ok := s.values[key]
	if !ok {
		return zero, false
	}
	tv, ok := v.(T)
	return tv, ok
}
