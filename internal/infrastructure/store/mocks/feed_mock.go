package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/meubles-dor/internal/infrastructure/feed"
	"github.com/example/meubles-dor/internal/infrastructure/store"
)

// MockFeed is a change feed driven by Emit.
type MockFeed struct {
	Table string

	mu         sync.Mutex
	events     chan store.ChangeEvent
	closed     bool
	closeCalls int
}

func NewMockFeed(table string) *MockFeed {
	return &MockFeed{Table: table, events: make(chan store.ChangeEvent, 256)}
}

func (f *MockFeed) Events() <-chan store.ChangeEvent {
	return f.events
}

// Emit pushes a change for the feed's table. It reports false once closed.
func (f *MockFeed) Emit(kind store.ChangeType, recordID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.events <- store.ChangeEvent{Table: f.Table, Type: kind, RecordID: recordID}
	return true
}

// Drop closes the event channel as if the transport went away.
func (f *MockFeed) Drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}

func (f *MockFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// CloseCalls returns how many times Close was invoked.
func (f *MockFeed) CloseCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *MockFeed) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// MockSource hands out MockFeeds and remembers every one it opened.
type MockSource struct {
	mu       sync.Mutex
	opened   map[string][]*MockFeed
	failures map[string]error
	gates    map[string]chan struct{}
	waiting  map[string]int
}

func NewMockSource() *MockSource {
	return &MockSource{
		opened:   make(map[string][]*MockFeed),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		waiting:  make(map[string]int),
	}
}

// Hold makes Open for table block until the returned release is called,
// simulating a slow first connection.
func (s *MockSource) Hold(table string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[table] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, table)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Waiting returns how many Open calls for table are blocked by Hold.
func (s *MockSource) Waiting(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting[table]
}

// FailOpen makes Open fail for table. A nil err clears the failure.
func (s *MockSource) FailOpen(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, table)
		return
	}
	s.failures[table] = err
}

func (s *MockSource) Open(ctx context.Context, table string) (feed.Feed, error) {
	s.mu.Lock()
	if gate, ok := s.gates[table]; ok {
		s.waiting[table]++
		s.mu.Unlock()
		select {
		case <-gate:
		case <-ctx.Done():
		}
		s.mu.Lock()
		s.waiting[table]--
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	defer s.mu.Unlock()
	if !store.KnownTable(table) {
		return nil, fmt.Errorf("no change feed for table %q", table)
	}
	if err := s.failures[table]; err != nil {
		return nil, err
	}
	mf := NewMockFeed(table)
	s.opened[table] = append(s.opened[table], mf)
	return mf, nil
}

// Opened returns every feed opened for table, oldest first.
func (s *MockSource) Opened(table string) []*MockFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*MockFeed{}, s.opened[table]...)
}

// Latest returns the most recently opened feed for table, or nil.
func (s *MockSource) Latest(table string) *MockFeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	feeds := s.opened[table]
	if len(feeds) == 0 {
		return nil
	}
	return feeds[len(feeds)-1]
}
