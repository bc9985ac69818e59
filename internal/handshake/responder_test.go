package handshake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crosspane/crosspane/internal/bus"
	"github.com/crosspane/crosspane/internal/protocol"
	"github.com/crosspane/crosspane/internal/remote"
)

// parentProbe records messages arriving back at the parent origin.
type parentProbe struct {
	mu   sync.Mutex
	seen []bus.Message
}

func newParentProbe(ep bus.Endpoint) *parentProbe {
	p := &parentProbe{}
	ep.Listen(func(msg bus.Message) {
		p.mu.Lock()
		p.seen = append(p.seen, msg)
		p.mu.Unlock()
	})
	return p
}

func (p *parentProbe) replies() []bus.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []bus.Message
	for _, msg := range p.seen {
		if msg.Envelope.Kind == protocol.KindHandshakeReply {
			out = append(out, msg)
		}
	}
	return out
}

func TestResponderRepliesOnce(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()

	parentEp := b.Attach(parentOrigin)
	childEp := b.Attach(childOrigin)
	probe := newParentProbe(parentEp)

	model := remote.NewModel()
	model.Set("untouched", remote.Constant("local"))
	model.Set("greeting", remote.Constant("hello"))

	resp := NewResponder(ResponderConfig{Model: model})

	results := make(chan *remote.Child, 1)
	go func() {
		child, err := resp.Await(context.Background(), childEp)
		if err != nil {
			t.Errorf("Await failed: %v", err)
		}
		results <- child
	}()

	// Announce twice, as a retrying initiator would.
	announce := protocol.NewHandshake(7, map[string]any{"greeting": "hi"})
	parentEp.Post(announce, childOrigin)
	parentEp.Post(announce, childOrigin)

	child := <-results
	defer child.Close()

	// Exactly one reply, tagged with the announced instance identifier.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(probe.replies()) == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	replies := probe.replies()
	if len(replies) != 1 {
		t.Fatalf("expected exactly one handshake reply, got %d", len(replies))
	}
	if replies[0].Envelope.InstanceID != 7 {
		t.Errorf("reply should carry instance 7, got %d", replies[0].Envelope.InstanceID)
	}
	if replies[0].Origin != childOrigin {
		t.Errorf("reply should come from the child origin, got %q", replies[0].Origin)
	}

	// Initiator-supplied keys win; untouched keys stay.
	if v := model.Resolve("greeting"); v != "hi" {
		t.Errorf("merge should prefer initiator keys, got %v", v)
	}
	if v := model.Resolve("untouched"); v != "local" {
		t.Errorf("merge should not disturb unrelated keys, got %v", v)
	}
}

func TestResponderFailsOnUnexpectedKind(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()

	parentEp := b.Attach(parentOrigin)
	childEp := b.Attach(childOrigin)

	resp := NewResponder(ResponderConfig{})

	results := make(chan error, 1)
	go func() {
		_, err := resp.Await(context.Background(), childEp)
		results <- err
	}()

	// A marker-bearing non-handshake message before any handshake.
	parentEp.Post(protocol.NewEmit(1, "early", nil), childOrigin)

	if err := <-results; !errors.Is(err, protocol.ErrHandshakeRejected) {
		t.Fatalf("expected ErrHandshakeRejected, got %v", err)
	}
}

func TestResponderFailureIsTerminal(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()

	parentEp := b.Attach(parentOrigin)
	childEp := b.Attach(childOrigin)
	probe := newParentProbe(parentEp)

	resp := NewResponder(ResponderConfig{})

	results := make(chan error, 1)
	go func() {
		_, err := resp.Await(context.Background(), childEp)
		results <- err
	}()

	// Noise then a handshake, back to back from one sender. Per-sender
	// order delivers the noise first; the resulting failure must stick,
	// leaving the handshake unanswered.
	parentEp.Post(protocol.NewEmit(1, "early", nil), childOrigin)
	parentEp.Post(protocol.NewHandshake(1, map[string]any{"greeting": "hi"}), childOrigin)

	if err := <-results; !errors.Is(err, protocol.ErrHandshakeRejected) {
		t.Fatalf("expected ErrHandshakeRejected, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if n := len(probe.replies()); n != 0 {
		t.Fatalf("failed responder must not reply to a later handshake, got %d replies", n)
	}
}

func TestResponderIgnoresChannelNoise(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()

	parentEp := b.Attach(parentOrigin)
	childEp := b.Attach(childOrigin)

	resp := NewResponder(ResponderConfig{})

	results := make(chan *remote.Child, 1)
	go func() {
		child, err := resp.Await(context.Background(), childEp)
		if err != nil {
			t.Errorf("Await failed: %v", err)
		}
		results <- child
	}()

	// Unmarked and unrecognized traffic must not trip the responder.
	parentEp.Post(&protocol.Envelope{Kind: protocol.KindEmit}, childOrigin)
	parentEp.Post(&protocol.Envelope{TypeTag: "other-protocol", Kind: protocol.KindEmit}, childOrigin)
	parentEp.Post(&protocol.Envelope{TypeTag: protocol.TypeTag, Kind: protocol.Kind("gossip")}, childOrigin)
	parentEp.Post(protocol.NewHandshake(3, nil), childOrigin)

	child := <-results
	child.Close()
}

func TestResponderHonorsContext(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()

	childEp := b.Attach(childOrigin)
	resp := NewResponder(ResponderConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan error, 1)
	go func() {
		_, err := resp.Await(ctx, childEp)
		results <- err
	}()

	cancel()
	if err := <-results; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
