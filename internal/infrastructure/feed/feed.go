// Package feed provides push-based change feeds, one per table.
package feed

import (
	"context"
	"fmt"

	"github.com/example/meubles-dor/internal/infrastructure/store"
)

// Feed is an open change feed for one table. Events is closed after Close
// returns or when the underlying transport gives up.
type Feed interface {
	Events() <-chan store.ChangeEvent
	Close() error
}

// Source opens change feeds.
type Source interface {
	Open(ctx context.Context, table string) (Feed, error)
}

const eventBuffer = 64

func checkTable(table string) error {
	if !store.KnownTable(table) {
		return fmt.Errorf("no change feed for table %q", table)
	}
	return nil
}
