package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/order"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const productColumns = `p.id, p.name, p.description, p.price, p.old_price, p.delivery_price,
	p.stock, p.image_urls, p.category_id, p.created_at`

const orderColumns = `id, customer_details, total_amount, status, form_data, created_at`

// PostgresStore implements Backend on PostgreSQL. When a publisher is set,
// every successful mutation is also published as a ChangeEvent.
type PostgresStore struct {
	db        *sql.DB
	publisher Publisher
	now       func() time.Time
}

func NewPostgresStore(db *sql.DB, publisher Publisher) *PostgresStore {
	return &PostgresStore{
		db:        db,
		publisher: publisher,
		now:       time.Now,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ============================================
// Products
// ============================================

func (s *PostgresStore) ListProducts(ctx context.Context, limit int) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+`
		 FROM products p
		 ORDER BY p.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	products := make([]product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, Classify(err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return products, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}

	var (
		catID, catName, catParent sql.NullString
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+`, c.id, c.name, c.parent_id
		 FROM products p
		 LEFT JOIN categories c ON c.id = p.category_id
		 WHERE p.id = $1`,
		id,
	)
	p, err := scanProduct(row, &catID, &catName, &catParent)
	if err != nil {
		return nil, Classify(err)
	}
	if catID.Valid {
		p.Category = &category.Category{
			ID:       catID.String,
			Name:     catName.String,
			ParentID: stringPtr(catParent),
		}
	}
	return p, nil
}

func (s *PostgresStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, Classify(err)
	}
	return n, nil
}

func (s *PostgresStore) InsertProduct(ctx context.Context, f product.Fields) (*product.Product, error) {
	p := product.Product{ID: uuid.New().String()}
	applyProductFields(&p, f)

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO products (id, name, description, price, old_price, delivery_price, stock, image_urls, category_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		p.ID, p.Name, p.Description, p.Price, nullDecimal(p.OldPrice), nullDecimal(p.DeliveryPrice),
		p.Stock, pq.Array(p.ImageURLs), nullString(p.CategoryID),
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, Classify(err)
	}

	s.publish(ctx, TableProducts, ChangeInsert, p.ID)
	return &p, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id string, f product.Fields) (*product.Product, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}

	p := product.Product{ID: id}
	applyProductFields(&p, f)

	err := s.db.QueryRowContext(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, old_price = $5, delivery_price = $6,
		     stock = $7, image_urls = $8, category_id = $9
		 WHERE id = $1
		 RETURNING created_at`,
		p.ID, p.Name, p.Description, p.Price, nullDecimal(p.OldPrice), nullDecimal(p.DeliveryPrice),
		p.Stock, pq.Array(p.ImageURLs), nullString(p.CategoryID),
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, Classify(err)
	}

	s.publish(ctx, TableProducts, ChangeUpdate, p.ID)
	return &p, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	return s.deleteRow(ctx, TableProducts, id)
}

// ============================================
// Categories
// ============================================

func (s *PostgresStore) ListCategories(ctx context.Context) ([]category.Category, error) {
	return s.queryCategories(ctx, `SELECT id, name, parent_id FROM categories ORDER BY name ASC`)
}

func (s *PostgresStore) ListRootCategories(ctx context.Context) ([]category.Category, error) {
	return s.queryCategories(ctx, `SELECT id, name, parent_id FROM categories WHERE parent_id IS NULL ORDER BY name ASC`)
}

func (s *PostgresStore) ListSubcategories(ctx context.Context, parentID string) ([]category.Category, error) {
	if !validID(parentID) {
		return []category.Category{}, nil
	}
	return s.queryCategories(ctx, `SELECT id, name, parent_id FROM categories WHERE parent_id = $1 ORDER BY name ASC`, parentID)
}

func (s *PostgresStore) GetCategory(ctx context.Context, id string) (*category.Category, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: category %s", ErrNotFound, id)
	}

	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT id, name, parent_id FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, Classify(err)
	}
	return c, nil
}

func (s *PostgresStore) InsertCategory(ctx context.Context, f category.Fields) (*category.Category, error) {
	c := category.Category{ID: uuid.New().String(), Name: f.Name, ParentID: emptyToNil(f.ParentID)}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, parent_id) VALUES ($1, $2, $3)`,
		c.ID, c.Name, nullString(c.ParentID),
	)
	if err != nil {
		return nil, Classify(err)
	}

	s.publish(ctx, TableCategories, ChangeInsert, c.ID)
	return &c, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, id string, f category.Fields) (*category.Category, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: category %s", ErrNotFound, id)
	}

	c := category.Category{ID: id, Name: f.Name, ParentID: emptyToNil(f.ParentID)}
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = $2, parent_id = $3 WHERE id = $1`,
		c.ID, c.Name, nullString(c.ParentID),
	)
	if err != nil {
		return nil, Classify(err)
	}
	if err := requireAffected(res, "category", id); err != nil {
		return nil, err
	}

	s.publish(ctx, TableCategories, ChangeUpdate, c.ID)
	return &c, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id string) error {
	return s.deleteRow(ctx, TableCategories, id)
}

func (s *PostgresStore) queryCategories(ctx context.Context, query string, args ...any) ([]category.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	categories := make([]category.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, Classify(err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return categories, nil
}

// ============================================
// Orders
// ============================================

func (s *PostgresStore) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	orders := make([]order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, Classify(err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return orders, nil
}

func (s *PostgresStore) ListOrderSummaries(ctx context.Context) ([]order.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT total_amount, created_at, status FROM orders`)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	summaries := make([]order.Summary, 0)
	for rows.Next() {
		var (
			amount decimal.NullDecimal
			sum    order.Summary
		)
		if err := rows.Scan(&amount, &sum.CreatedAt, &sum.Status); err != nil {
			return nil, Classify(err)
		}
		if amount.Valid {
			sum.TotalAmount = &amount.Decimal
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return summaries, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}

	o, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, Classify(err)
	}
	return o, nil
}

func (s *PostgresStore) InsertOrder(ctx context.Context, d order.Draft) (*order.Order, error) {
	customer, err := json.Marshal(d.CustomerDetails)
	if err != nil {
		return nil, err
	}
	formData, err := json.Marshal(d.FormData)
	if err != nil {
		return nil, err
	}

	o := order.Order{
		ID:              uuid.New().String(),
		CustomerDetails: d.CustomerDetails,
		TotalAmount:     d.TotalAmount,
		Status:          d.Status,
		FormData:        d.FormData,
	}
	if o.Status == "" {
		o.Status = order.StatusNew
	}

	err = s.db.QueryRowContext(ctx,
		`INSERT INTO orders (id, customer_details, total_amount, status, form_data)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		o.ID, customer, o.TotalAmount, string(o.Status), formData,
	).Scan(&o.CreatedAt)
	if err != nil {
		return nil, Classify(err)
	}

	s.publish(ctx, TableOrders, ChangeInsert, o.ID)
	return &o, nil
}

// UpdateOrder writes only the fields set in u.
func (s *PostgresStore) UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error) {
	if u.Empty() {
		return nil, fmt.Errorf("%w: %w", ErrValidationRejected, order.ErrEmptyUpdate)
	}
	if !validID(id) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}

	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.CustomerDetails != nil {
		raw, err := json.Marshal(u.CustomerDetails)
		if err != nil {
			return nil, err
		}
		add("customer_details", raw)
	}
	if u.TotalAmount != nil {
		add("total_amount", *u.TotalAmount)
	}
	if u.FormData != nil {
		raw, err := json.Marshal(u.FormData)
		if err != nil {
			return nil, err
		}
		add("form_data", raw)
	}

	o, err := scanOrder(s.db.QueryRowContext(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+orderColumns,
		args...,
	))
	if err != nil {
		return nil, Classify(err)
	}

	s.publish(ctx, TableOrders, ChangeUpdate, o.ID)
	return o, nil
}

func (s *PostgresStore) DeleteOrder(ctx context.Context, id string) error {
	return s.deleteRow(ctx, TableOrders, id)
}

// ============================================
// Helpers
// ============================================

func (s *PostgresStore) deleteRow(ctx context.Context, table, id string) error {
	if !validID(id) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, table, id)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return Classify(err)
	}
	if err := requireAffected(res, table, id); err != nil {
		return err
	}

	s.publish(ctx, table, ChangeDelete, id)
	return nil
}

// publish forwards a change to the bus. The row is already committed, so a
// failure is only logged.
func (s *PostgresStore) publish(ctx context.Context, table string, kind ChangeType, id string) {
	if s.publisher == nil {
		return
	}
	event := ChangeEvent{
		Table:           table,
		Type:            kind,
		RecordID:        id,
		CommitTimestamp: s.now(),
	}
	if err := s.publisher.Publish(ctx, table, event); err != nil {
		log.Printf("[PostgresStore] Failed to publish %s change for %s %s: %v", kind, table, id, err)
	}
}

func scanProduct(row rowScanner, extra ...any) (*product.Product, error) {
	var (
		p           product.Product
		description sql.NullString
		oldPrice    decimal.NullDecimal
		delivery    decimal.NullDecimal
		images      pq.StringArray
		categoryID  sql.NullString
	)
	dest := []any{&p.ID, &p.Name, &description, &p.Price, &oldPrice, &delivery,
		&p.Stock, &images, &categoryID, &p.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	p.Description = description.String
	if oldPrice.Valid {
		p.OldPrice = &oldPrice.Decimal
	}
	if delivery.Valid {
		p.DeliveryPrice = &delivery.Decimal
	}
	p.ImageURLs = []string(images)
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	p.CategoryID = stringPtr(categoryID)
	return &p, nil
}

func scanCategory(row rowScanner) (*category.Category, error) {
	var (
		c      category.Category
		parent sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &parent); err != nil {
		return nil, err
	}
	c.ParentID = stringPtr(parent)
	return &c, nil
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o        order.Order
		customer []byte
		formData []byte
		amount   decimal.NullDecimal
	)
	if err := row.Scan(&o.ID, &customer, &amount, &o.Status, &formData, &o.CreatedAt); err != nil {
		return nil, err
	}
	if amount.Valid {
		o.TotalAmount = amount.Decimal
	}
	if len(customer) > 0 {
		if err := json.Unmarshal(customer, &o.CustomerDetails); err != nil {
			return nil, fmt.Errorf("decode customer_details of order %s: %w", o.ID, err)
		}
	}
	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &o.FormData); err != nil {
			return nil, fmt.Errorf("decode form_data of order %s: %w", o.ID, err)
		}
	}
	return &o, nil
}

func applyProductFields(p *product.Product, f product.Fields) {
	p.Name = f.Name
	p.Description = f.Description
	p.Price = f.Price
	p.OldPrice = f.OldPrice
	p.DeliveryPrice = f.DeliveryPrice
	p.Stock = f.Stock
	p.ImageURLs = append([]string{}, f.ImageURLs...)
	p.CategoryID = emptyToNil(f.CategoryID)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return Classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
