// Package guest owns the embedding primitive: creation of a child execution
// context, its attachment lifecycle, and the loaded signal the handshake
// initiator waits on before sending its first announcement.
package guest

// Guest is an embedded child execution context as the initiator sees it.
type Guest interface {
	// Ready is closed once the context has finished loading and its
	// protocol listener is (or is about to be) registered. Announcing
	// before this point would send into a not-yet-listening counterpart.
	Ready() <-chan struct{}

	// Close detaches the context from its container. Irreversible.
	Close() error
}

// Static is a guest whose lifecycle is managed externally: Ready fires when
// the owner signals it. Useful for in-process responders and tests.
type Static struct {
	ready chan struct{}
}

// NewStatic creates an unready static guest.
func NewStatic() *Static {
	return &Static{ready: make(chan struct{})}
}

// NewStaticReady creates a static guest that is ready immediately.
func NewStaticReady() *Static {
	s := NewStatic()
	s.SignalReady()
	return s
}

// SignalReady marks the guest as loaded. Safe to call once.
func (s *Static) SignalReady() {
	close(s.ready)
}

// Ready implements Guest.
func (s *Static) Ready() <-chan struct{} { return s.ready }

// Close implements Guest. Static guests own no resources.
func (s *Static) Close() error { return nil }
