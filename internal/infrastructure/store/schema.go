package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// schema is applied idempotently by Migrate. The notify trigger publishes a
// ChangeEvent-shaped JSON payload on <table>_changes for every row change.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL,
		parent_id  UUID REFERENCES categories(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id             UUID PRIMARY KEY,
		name           TEXT NOT NULL,
		description    TEXT,
		price          NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		old_price      NUMERIC(12,2) CHECK (old_price >= 0),
		delivery_price NUMERIC(12,2) CHECK (delivery_price >= 0),
		stock          INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		image_urls     TEXT[] NOT NULL DEFAULT '{}',
		category_id    UUID REFERENCES categories(id) ON DELETE SET NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_created_at ON products (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               UUID PRIMARY KEY,
		customer_details JSONB NOT NULL,
		total_amount     NUMERIC(12,2),
		status           TEXT NOT NULL DEFAULT 'Nouvelle'
			CHECK (status IN ('Nouvelle', 'En traitement', 'Expédiée', 'Livrée', 'Annulée')),
		form_data        JSONB NOT NULL DEFAULT '{}',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders (created_at DESC)`,
	`CREATE OR REPLACE FUNCTION notify_table_change() RETURNS trigger AS $$
	DECLARE
		rec RECORD;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			rec := OLD;
		ELSE
			rec := NEW;
		END IF;
		PERFORM pg_notify(TG_TABLE_NAME || '_changes', json_build_object(
			'table', TG_TABLE_NAME,
			'type', TG_OP,
			'record_id', rec.id,
			'commit_timestamp', now()
		)::text);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
}

// Migrate creates the storefront tables and attaches change triggers.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	for _, table := range Tables {
		trigger := table + "_notify_change"
		stmts := []string{
			fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, table),
			fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT OR UPDATE OR DELETE ON %s
				FOR EACH ROW EXECUTE FUNCTION notify_table_change()`, trigger, table),
		}
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("install trigger on %s: %w", table, err)
			}
		}
	}
	log.Printf("[PostgresStore] Schema up to date (%d tables)", len(Tables))
	return nil
}
