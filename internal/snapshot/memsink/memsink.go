// Package memsink provides an in-memory snapshot sink for testing.
package memsink

import (
	"context"
	"sort"
	"sync"

	"github.com/discochess/accuracy/internal/snapshot"
)

// Compile-time check that Sink implements snapshot.Sink.
var _ snapshot.Sink = (*Sink)(nil)

// Sink is an in-memory snapshot sink.
type Sink struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// New creates a new in-memory sink.
func New() *Sink {
	return &Sink{
		snapshots: make(map[string][]byte),
	}
}

// Put stores a copy of data under name.
func (s *Sink) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[name] = append([]byte(nil), data...)
	return nil
}

// Get returns the snapshot stored under name.
func (s *Sink) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.snapshots[name]
	if !ok {
		return nil, snapshot.ErrNotFound
	}
	return data, nil
}

// Names returns the stored names in sorted order.
func (s *Sink) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close is a no-op for the memory sink.
func (s *Sink) Close() error {
	return nil
}
