package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Basket is a user's open cart. Each user has at most one.
type Basket struct {
	ID        string
	UserID    string
	Items     []BasketItem
	CreatedAt time.Time
}

// BasketItem is one product line in a basket.
type BasketItem struct {
	ProductID string
	Quantity  int64
}

// BasketForUser returns the user's basket, creating it on first use.
func (s *Store) BasketForUser(ctx context.Context, userID string) (*Basket, error) {
	basket := &Basket{UserID: userID}
	var created int64

	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, created_at FROM baskets WHERE user_id = ?`, userID,
	).Scan(&basket.ID, &created)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		basket.ID = uuid.NewString()
		basket.CreatedAt = time.Now().UTC()
		if _, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO baskets (id, user_id, created_at) VALUES (?, ?, ?)`,
			basket.ID, userID, basket.CreatedAt.UnixMilli(),
		); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		basket.CreatedAt = fromMillis(created)
	}

	items, err := s.basketItems(ctx, basket.ID)
	if err != nil {
		return nil, err
	}
	basket.Items = items
	return basket, nil
}

// AddBasketItem adds quantity of a product to the user's basket, summing
// with any existing line.
func (s *Store) AddBasketItem(ctx context.Context, userID, productID string, quantity int64) (*Basket, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrInvalid)
	}

	product, err := s.ProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	if product.Status != ProductAvailable {
		return nil, ErrConflict
	}

	basket, err := s.BasketForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO basket_items (basket_id, product_id, quantity) VALUES (?, ?, ?)
		 ON CONFLICT (basket_id, product_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		basket.ID, productID, quantity,
	)
	if err != nil {
		return nil, err
	}
	return s.BasketForUser(ctx, userID)
}

// SetBasketItemQuantity replaces a line's quantity; zero removes the line.
func (s *Store) SetBasketItemQuantity(ctx context.Context, userID, productID string, quantity int64) (*Basket, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrInvalid)
	}

	basket, err := s.BasketForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if quantity == 0 {
		res, err := s.sqlDB.ExecContext(ctx,
			`DELETE FROM basket_items WHERE basket_id = ? AND product_id = ?`,
			basket.ID, productID)
		if err != nil {
			return nil, err
		}
		if err := requireRow(res); err != nil {
			return nil, err
		}
		return s.BasketForUser(ctx, userID)
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE basket_items SET quantity = ? WHERE basket_id = ? AND product_id = ?`,
		quantity, basket.ID, productID)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.BasketForUser(ctx, userID)
}

// ClearBasket removes every line from the user's basket.
func (s *Store) ClearBasket(ctx context.Context, userID string) error {
	basket, err := s.BasketForUser(ctx, userID)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`DELETE FROM basket_items WHERE basket_id = ?`, basket.ID)
	return err
}

func (s *Store) basketItems(ctx context.Context, basketID string) ([]BasketItem, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT product_id, quantity FROM basket_items WHERE basket_id = ? ORDER BY product_id`,
		basketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BasketItem
	for rows.Next() {
		var item BasketItem
		if err := rows.Scan(&item.ProductID, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
