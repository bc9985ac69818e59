package remote

import (
	"testing"
	"time"
)

func TestModelResolveVariants(t *testing.T) {
	m := NewModel()
	m.Set("constant", Constant(42))
	m.Set("accessor", Accessor(func() any { return "computed" }))
	m.Set("procedure", Procedure(func(any) {}))

	if v := m.Resolve("constant"); v != 42 {
		t.Errorf("constant should resolve to 42, got %v", v)
	}
	if v := m.Resolve("accessor"); v != "computed" {
		t.Errorf("accessor should resolve to its return value, got %v", v)
	}
	if v := m.Resolve("procedure"); v != nil {
		t.Errorf("procedure should resolve to nil on read, got %v", v)
	}
	if v := m.Resolve("missing"); v != nil {
		t.Errorf("missing property should resolve to nil, got %v", v)
	}
}

func TestModelAccessorInvokedPerRead(t *testing.T) {
	m := NewModel()
	calls := 0
	m.Set("counter", Accessor(func() any {
		calls++
		return calls
	}))

	if v := m.Resolve("counter"); v != 1 {
		t.Errorf("first read should be 1, got %v", v)
	}
	if v := m.Resolve("counter"); v != 2 {
		t.Errorf("second read should be 2, got %v", v)
	}
}

func TestModelDeferredResolvesOnceAndCaches(t *testing.T) {
	m := NewModel()
	future := make(chan any, 1)
	m.Set("later", Deferred(future))

	done := make(chan any, 1)
	go func() {
		done <- m.Resolve("later")
	}()

	select {
	case <-done:
		t.Fatal("deferred read should block until the value arrives")
	case <-time.After(20 * time.Millisecond):
	}

	future <- "arrived"
	if v := <-done; v != "arrived" {
		t.Errorf("expected arrived, got %v", v)
	}

	// Cached: a second read must not consume the channel again.
	if v := m.Resolve("later"); v != "arrived" {
		t.Errorf("cached read should return arrived, got %v", v)
	}
}

func TestModelMergePrecedence(t *testing.T) {
	m := NewModel()
	m.Set("greeting", Constant("hello"))
	m.Set("local", Constant("mine"))

	m.Merge(map[string]any{"greeting": "hi", "extra": true})

	if v := m.Resolve("greeting"); v != "hi" {
		t.Errorf("merged key should win, got %v", v)
	}
	if v := m.Resolve("local"); v != "mine" {
		t.Errorf("unrelated key should be untouched, got %v", v)
	}
	if v := m.Resolve("extra"); v != true {
		t.Errorf("new merged key should be present, got %v", v)
	}
}

func TestModelInvoke(t *testing.T) {
	m := NewModel()
	var got any
	m.Set("notify", Procedure(func(data any) { got = data }))
	m.Set("plain", Constant(1))

	if !m.Invoke("notify", "payload") {
		t.Fatal("procedure should be invocable")
	}
	if got != "payload" {
		t.Errorf("procedure should receive payload, got %v", got)
	}
	if m.Invoke("plain", nil) {
		t.Error("non-procedure entry must not be invocable")
	}
	if m.Invoke("missing", nil) {
		t.Error("missing entry must not be invocable")
	}
}
