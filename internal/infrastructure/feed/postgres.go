package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/example/meubles-dor/internal/infrastructure/store"
	"github.com/lib/pq"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// PostgresSource opens LISTEN/NOTIFY feeds on the <table>_changes channels
// filled by the notify_table_change trigger.
type PostgresSource struct {
	dsn string
}

func NewPostgresSource(dsn string) *PostgresSource {
	return &PostgresSource{dsn: dsn}
}

// Open connects a dedicated listener and waits for its first connection
// attempt. Later connection drops are retried by the listener itself and
// surface as a RESYNC event once it reconnects.
func (s *PostgresSource) Open(ctx context.Context, table string) (Feed, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	ready := make(chan error, 1)
	var first sync.Once
	listener := pq.NewListener(s.dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnected:
				first.Do(func() { ready <- nil })
			case pq.ListenerEventConnectionAttemptFailed:
				first.Do(func() { ready <- err })
				log.Printf("[PostgresFeed] Connection attempt for %s failed: %v", table, err)
			case pq.ListenerEventDisconnected:
				log.Printf("[PostgresFeed] Disconnected from %s: %v", table, err)
			case pq.ListenerEventReconnected:
				log.Printf("[PostgresFeed] Reconnected to %s", table)
			}
		})

	select {
	case err := <-ready:
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("%w: connect listener for %s: %w", store.ErrBackendUnavailable, table, err)
		}
	case <-ctx.Done():
		listener.Close()
		return nil, ctx.Err()
	}

	if err := listener.Listen(store.ChannelName(table)); err != nil {
		listener.Close()
		return nil, fmt.Errorf("%w: listen %s: %w", store.ErrBackendUnavailable, table, err)
	}

	f := &postgresFeed{
		table:    table,
		listener: listener,
		events:   make(chan store.ChangeEvent, eventBuffer),
		done:     make(chan struct{}),
	}
	go f.run()

	log.Printf("[PostgresFeed] Listening on %s", store.ChannelName(table))
	return f, nil
}

type postgresFeed struct {
	table    string
	listener *pq.Listener
	events   chan store.ChangeEvent
	done     chan struct{}
	once     sync.Once
	err      error
}

func (f *postgresFeed) Events() <-chan store.ChangeEvent {
	return f.events
}

func (f *postgresFeed) Close() error {
	f.once.Do(func() {
		close(f.done)
		f.err = f.listener.Close()
	})
	return f.err
}

func (f *postgresFeed) run() {
	defer close(f.events)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case n, ok := <-f.listener.Notify:
			if !ok {
				return
			}
			event, err := f.decode(n)
			if err != nil {
				log.Printf("[PostgresFeed] Dropping malformed notification on %s: %v", f.table, err)
				continue
			}
			select {
			case f.events <- event:
			case <-f.done:
				return
			}
		case <-ticker.C:
			go func() {
				if err := f.listener.Ping(); err != nil {
					log.Printf("[PostgresFeed] Ping on %s failed: %v", f.table, err)
				}
			}()
		}
	}
}

// decode turns a notification into a ChangeEvent. A nil notification means
// the connection was re-established and events may have been lost.
func (f *postgresFeed) decode(n *pq.Notification) (store.ChangeEvent, error) {
	if n == nil {
		return store.ChangeEvent{
			Table:           f.table,
			Type:            store.ChangeResync,
			CommitTimestamp: time.Now(),
		}, nil
	}
	return DecodeChange(f.table, []byte(n.Extra))
}

// DecodeChange parses a JSON change payload and checks it belongs to table.
func DecodeChange(table string, payload []byte) (store.ChangeEvent, error) {
	var event store.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return store.ChangeEvent{}, err
	}
	if event.Table == "" {
		event.Table = table
	}
	if event.Table != table {
		return store.ChangeEvent{}, fmt.Errorf("change for %s on %s feed", event.Table, table)
	}
	return event, nil
}
