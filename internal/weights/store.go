// internal/weights/store.go
package weights

import (
	"sync"

	"placeholder-engine/internal/models"
)

// Key identifies one learning bucket: adjustments are accumulated per
// (document type, placeholder type) pair.
type Key struct {
	DocumentType    string
	PlaceholderType models.PlaceholderType
}

// Signal names the five inputs the calculator aggregates.
const (
	SignalParagraph = "paragraph"
	SignalSection   = "section"
	SignalDocument  = "document"
	SignalBusiness  = "business"
	SignalSemantic  = "semantic"
)

var allSignals = []string{
	SignalParagraph, SignalSection, SignalDocument, SignalBusiness, SignalSemantic,
}

// Store is the learning weight store: the only cross-invocation mutable
// state in the engine. It is an explicit, versioned key-value store passed
// by reference into the calculator, never a package-level singleton, so
// tests construct a fresh one each time. Updates are applied under a
// per-key lock: single writer at a time per key.
type Store struct {
	mu      sync.Mutex
	alpha   float64
	entries map[Key]*storeEntry
}

type storeEntry struct {
	mu      sync.Mutex
	ewma    map[string]float64
	samples int64
	version int64
}

// NewStore creates an empty learning store. alpha is the EWMA smoothing
// factor in (0,1); higher means feedback moves the weights faster.
func NewStore(alpha float64) *Store {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.2
	}
	return &Store{
		alpha:   alpha,
		entries: make(map[Key]*storeEntry),
	}
}

func (s *Store) entry(key Key) *storeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		ewma := make(map[string]float64, len(allSignals))
		for _, sig := range allSignals {
			ewma[sig] = 0.5 // uninformed prior
		}
		e = &storeEntry{ewma: ewma}
		s.entries[key] = e
	}
	return e
}

// Record folds one resolution outcome into the key's EWMA: a signal that
// was high when resolution succeeded (or low when it failed) earns
// correlation credit. The version increments on every write.
func (s *Store) Record(key Key, signals map[string]float64, success bool) int64 {
	e := s.entry(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sig := range allSignals {
		observed, ok := signals[sig]
		if !ok {
			continue
		}
		credit := observed
		if !success {
			credit = 1 - observed
		}
		e.ewma[sig] = (1-s.alpha)*e.ewma[sig] + s.alpha*credit
	}
	e.samples++
	e.version++
	return e.version
}

// Snapshot returns a copy of the key's correlation estimates plus the
// entry version. ok is false when the key has never recorded feedback.
func (s *Store) Snapshot(key Key) (ewma map[string]float64, version int64, ok bool) {
	s.mu.Lock()
	e, exists := s.entries[key]
	s.mu.Unlock()
	if !exists {
		return nil, 0, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.samples == 0 {
		return nil, e.version, false
	}

	out := make(map[string]float64, len(e.ewma))
	for k, v := range e.ewma {
		out[k] = v
	}
	return out, e.version, true
}

// Version returns the current version for a key (0 when unseen).
func (s *Store) Version(key Key) int64 {
	s.mu.Lock()
	e, exists := s.entries[key]
	s.mu.Unlock()
	if !exists {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}
