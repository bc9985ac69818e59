// Package remote implements both ends of an established pairing: the Parent
// API on the initiating side (property reads, procedure calls, event
// subscriptions) and the Child API on the responding side (event emission,
// request serving). Both are created by the handshake layer; neither is
// constructed directly by users.
package remote

import "sync"

// Entry is one value in a child's data model. Rather than duck-typing values
// at resolution time, entries are tagged at definition time:
//
//	Constant  resolves to a fixed value
//	Accessor  resolves by invoking a zero-argument function
//	Deferred  resolves by waiting on a future value
//	Procedure is invocable via call but resolves to nil on read
type Entry struct {
	kind      entryKind
	value     any
	accessor  func() any
	future    <-chan any
	futureVal *futureCell
	proc      func(any)
}

type entryKind int

const (
	entryConstant entryKind = iota
	entryAccessor
	entryDeferred
	entryProcedure
)

// futureCell caches a Deferred entry's value after its first resolution, so
// repeated reads do not re-consume the channel.
type futureCell struct {
	once  sync.Once
	value any
}

// Constant defines a plain value entry.
func Constant(v any) Entry {
	return Entry{kind: entryConstant, value: v}
}

// Accessor defines an entry resolved by invoking fn on every read.
func Accessor(fn func() any) Entry {
	return Entry{kind: entryAccessor, accessor: fn}
}

// Deferred defines an entry whose value arrives later on ch. The first read
// waits; subsequent reads see the cached value.
func Deferred(ch <-chan any) Entry {
	return Entry{kind: entryDeferred, future: ch, futureVal: &futureCell{}}
}

// Procedure defines an invocable entry for fire-and-forget calls.
func Procedure(fn func(data any)) Entry {
	return Entry{kind: entryProcedure, proc: fn}
}

// Model is the responder-owned mapping from property name to entry.
type Model struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{entries: make(map[string]Entry)}
}

// Set defines or replaces a property.
func (m *Model) Set(name string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = e
}

// Merge shallow-merges initiator-supplied defaults into the model, one level
// of keys only. Supplied keys win on conflict and are stored as constants.
func (m *Model) Merge(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, v := range values {
		m.entries[name] = Constant(v)
	}
}

// Resolve returns the current value of a property. Missing properties and
// procedures resolve to nil. Deferred entries block until their value
// arrives.
func (m *Model) Resolve(name string) any {
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	switch e.kind {
	case entryConstant:
		return e.value
	case entryAccessor:
		return e.accessor()
	case entryDeferred:
		e.futureVal.once.Do(func() {
			e.futureVal.value = <-e.future
		})
		return e.futureVal.value
	default:
		return nil
	}
}

// Invoke runs the named procedure with data and reports whether the property
// existed and was invocable.
func (m *Model) Invoke(name string, data any) bool {
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()
	if !ok || e.kind != entryProcedure {
		return false
	}
	e.proc(data)
	return true
}

// Has reports whether the model defines name.
func (m *Model) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[name]
	return ok
}
