// Package id provides identifier generation for crosspane pairings.
//
// Two identifier families exist:
//   - Protocol identifiers: small monotonic integers stamped into envelopes
//     (instance IDs isolate pairings sharing one bus, correlation IDs match
//     replies to requests). These come from a Source, an injectable counter
//     pair, so tests never depend on hidden process-wide state.
//   - Trace identifiers: prefixed ULIDs used only in logs, to follow one
//     pairing across both sides of the channel.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InstanceID isolates one host/guest pairing on a shared bus.
type InstanceID int64

// CorrelationID matches a reply envelope to the request that produced it.
type CorrelationID int64

// Source generates protocol identifiers. Both counters are strictly
// increasing for the lifetime of the Source and values are never reused.
// The zero value is ready to use.
type Source struct {
	mu          sync.Mutex
	correlation int64
	instance    int64
}

// NewSource creates an independent identifier source.
func NewSource() *Source {
	return &Source{}
}

// NextCorrelation returns a fresh correlation identifier.
func (s *Source) NextCorrelation() CorrelationID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.correlation++
	return CorrelationID(s.correlation)
}

// NextInstance returns a fresh instance identifier.
func (s *Source) NextInstance() InstanceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instance++
	return InstanceID(s.instance)
}

var (
	defaultSource *Source
	once          sync.Once
)

// Default returns the process-wide identifier source.
func Default() *Source {
	once.Do(func() {
		defaultSource = NewSource()
	})
	return defaultSource
}

// ============================================================================
// Trace IDs (logging only, never on the wire)
// ============================================================================

// PairingPrefix marks pairing trace IDs in logs.
const PairingPrefix = "pair"

var (
	entropyMu sync.Mutex
	entropy   io.Reader = rand.Reader
)

// NewPairingTrace returns a prefixed ULID identifying one pairing in logs.
func NewPairingTrace() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return fmt.Sprintf("%s_%s", PairingPrefix, ulid.MustNew(ulid.Timestamp(time.Now()), entropy))
}
