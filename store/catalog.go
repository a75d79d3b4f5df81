package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product availability states.
const (
	ProductAvailable    = "available"
	ProductOutOfStock   = "out_of_stock"
	ProductDiscontinued = "discontinued"
)

// Category is a catalog grouping, optionally nested under a parent.
type Category struct {
	ID       string
	Name     string
	ParentID string // empty for a root category
}

// Product is a catalog entry. Price is in the smallest currency unit.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Stock       int64
	Status      string
	CategoryID  string
	CreatedAt   time.Time
}

// ValidProductStatus reports whether status is one of the known states.
func ValidProductStatus(status string) bool {
	switch status {
	case ProductAvailable, ProductOutOfStock, ProductDiscontinued:
		return true
	}
	return false
}

// CreateCategory inserts a category. parentID may be empty.
func (s *Store) CreateCategory(ctx context.Context, name, parentID string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalid)
	}

	cat := &Category{ID: uuid.NewString(), Name: name, ParentID: parentID}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)`,
		cat.ID, cat.Name, nullable(cat.ParentID),
	)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// CategoryByID returns a category, or (nil, nil).
func (s *Store) CategoryByID(ctx context.Context, id string) (*Category, error) {
	var cat Category
	var parent sql.NullString
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, parent_id FROM categories WHERE id = ?`, id,
	).Scan(&cat.ID, &cat.Name, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cat.ParentID = parent.String
	return &cat, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, parent_id FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var cat Category
		var parent sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &parent); err != nil {
			return nil, err
		}
		cat.ParentID = parent.String
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

// UpdateCategory renames a category.
func (s *Store) UpdateCategory(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalid)
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteCategory removes a category; child categories and products keep
// existing with their reference cleared (ON DELETE SET NULL).
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// CreateProduct inserts a product in the available state.
func (s *Store) CreateProduct(ctx context.Context, p Product) (*Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalid)
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("%w: product price must be >= 0", ErrInvalid)
	}
	if p.Stock < 0 {
		return nil, fmt.Errorf("%w: product stock must be >= 0", ErrInvalid)
	}
	if p.Status == "" {
		p.Status = ProductAvailable
	}
	if !ValidProductStatus(p.Status) {
		return nil, fmt.Errorf("%w: unknown product status", ErrInvalid)
	}

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO products (id, name, description, price, stock, status, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Status, nullable(p.CategoryID), p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductByID returns a product, or (nil, nil).
func (s *Store) ProductByID(ctx context.Context, id string) (*Product, error) {
	return scanProduct(s.sqlDB.QueryRowContext(ctx,
		`SELECT id, name, description, price, stock, status, category_id, created_at
		 FROM products WHERE id = ?`, id))
}

// ListProducts returns products, optionally filtered by category.
func (s *Store) ListProducts(ctx context.Context, categoryID string) ([]Product, error) {
	query := `SELECT id, name, description, price, stock, status, category_id, created_at
		 FROM products ORDER BY created_at`
	args := []any{}
	if categoryID != "" {
		query = `SELECT id, name, description, price, stock, status, category_id, created_at
		 FROM products WHERE category_id = ? ORDER BY created_at`
		args = append(args, categoryID)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProduct replaces the mutable fields of a product.
func (s *Store) UpdateProduct(ctx context.Context, p Product) error {
	if !ValidProductStatus(p.Status) {
		return fmt.Errorf("%w: unknown product status", ErrInvalid)
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price = ?, stock = ?, status = ?, category_id = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.Status, nullable(p.CategoryID), p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteProduct removes a product and cascades through basket and order
// items.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row *sql.Row) (*Product, error) {
	p, err := scanProductRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanProductRow(row rowScanner) (*Product, error) {
	var p Product
	var category sql.NullString
	var created int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Status, &category, &created); err != nil {
		return nil, err
	}
	p.CategoryID = category.String
	p.CreatedAt = fromMillis(created)
	return &p, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
