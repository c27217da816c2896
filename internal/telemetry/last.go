package telemetry

import (
	"context"
	"sync"
)

// Last keeps the most recent record. It is safe for concurrent use and is
// read by the HTTP status endpoint while the loop writes to it.
type Last struct {
	mu  sync.RWMutex
	rec Record
	ok  bool
}

// NewLast creates an empty Last.
func NewLast() *Last {
	return &Last{}
}

// Name returns "last".
func (l *Last) Name() string { return "last" }

// Record replaces the stored record.
func (l *Last) Record(_ context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rec = rec
	l.ok = true
	return nil
}

// Get returns the stored record and whether any cycle has been recorded.
func (l *Last) Get() (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rec, l.ok
}
