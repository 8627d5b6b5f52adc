package store

import "time"

// Tables that emit change events.
const (
	TableProducts   = "products"
	TableCategories = "categories"
	TableOrders     = "orders"
)

// Tables lists every table with a change feed.
var Tables = []string{TableProducts, TableCategories, TableOrders}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	// ChangeResync is emitted when a feed lost its connection and changes may
	// have been missed.
	ChangeResync ChangeType = "RESYNC"
)

// ChangeEvent is one row-level change observed on a table.
type ChangeEvent struct {
	Table           string     `json:"table"`
	Type            ChangeType `json:"type"`
	RecordID        string     `json:"record_id"`
	CommitTimestamp time.Time  `json:"commit_timestamp"`
}

// ChannelName is the LISTEN/NOTIFY channel carrying changes for table.
func ChannelName(table string) string {
	return table + "_changes"
}

// KnownTable reports whether table has a change feed.
func KnownTable(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}
