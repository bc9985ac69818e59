package id

import (
	"strings"
	"sync"
	"testing"
)

func TestCorrelationStrictlyIncreasing(t *testing.T) {
	src := NewSource()

	prev := src.NextCorrelation()
	for i := 0; i < 1000; i++ {
		next := src.NextCorrelation()
		if next <= prev {
			t.Fatalf("correlation IDs must be strictly increasing: %d after %d", next, prev)
		}
		prev = next
	}
}

func TestInstanceIndependentOfCorrelation(t *testing.T) {
	src := NewSource()

	src.NextCorrelation()
	src.NextCorrelation()
	src.NextCorrelation()

	if inst := src.NextInstance(); inst != 1 {
		t.Errorf("first instance ID should be 1, got %d", inst)
	}
}

func TestSourcesIndependent(t *testing.T) {
	a := NewSource()
	b := NewSource()

	a.NextCorrelation()
	a.NextCorrelation()

	if c := b.NextCorrelation(); c != 1 {
		t.Errorf("fresh source should start at 1, got %d", c)
	}
}

func TestConcurrentGenerationNeverRepeats(t *testing.T) {
	src := NewSource()

	const goroutines = 8
	const perGoroutine = 500

	var wg sync.WaitGroup
	results := make(chan CorrelationID, goroutines*perGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				results <- src.NextCorrelation()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[CorrelationID]bool, goroutines*perGoroutine)
	for c := range results {
		if seen[c] {
			t.Fatalf("correlation ID %d issued twice", c)
		}
		seen[c] = true
	}
}

func TestPairingTrace(t *testing.T) {
	a := NewPairingTrace()
	b := NewPairingTrace()

	if !strings.HasPrefix(a, PairingPrefix+"_") {
		t.Errorf("trace should start with %q, got %s", PairingPrefix+"_", a)
	}
	if a == b {
		t.Error("pairing traces should be unique")
	}
}
