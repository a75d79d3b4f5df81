package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Order lifecycle states.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Order is a placed order with price-snapshotted items.
type Order struct {
	ID        string
	UserID    string
	Status    string
	Total     int64
	Items     []OrderItem
	CreatedAt time.Time
}

// OrderItem is one line of an order. Price is the per-unit price at the
// time the order was placed.
type OrderItem struct {
	ProductID string
	Quantity  int64
	Price     int64
}

// orderTransitions maps each status to the states it may move to.
// Cancellation is only possible while pending; delivered and cancelled
// are terminal.
var orderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped},
	OrderShipped:   {OrderDelivered},
}

func validTransition(from, to string) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateOrderFromBasket snapshots the user's basket into a pending order,
// decrements product stock, and empties the basket, all in one
// transaction. An empty basket or insufficient stock aborts the order.
func (s *Store) CreateOrderFromBasket(ctx context.Context, userID string) (*Order, error) {
	basket, err := s.BasketForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(basket.Items) == 0 {
		return nil, fmt.Errorf("%w: basket is empty", ErrConflict)
	}

	order := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    OrderPending,
		CreatedAt: time.Now().UTC(),
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, item := range basket.Items {
			var price, stock int64
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT price, stock, status FROM products WHERE id = ?`, item.ProductID,
			).Scan(&price, &stock, &status)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: product %s", ErrNotFound, item.ProductID)
			}
			if err != nil {
				return err
			}
			if status != ProductAvailable || stock < item.Quantity {
				return fmt.Errorf("%w: product %s unavailable", ErrConflict, item.ProductID)
			}

			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - ? WHERE id = ?`,
				item.Quantity, item.ProductID); err != nil {
				return err
			}

			order.Items = append(order.Items, OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     price,
			})
			order.Total += price * item.Quantity
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, status, total, created_at) VALUES (?, ?, ?, ?, ?)`,
			order.ID, order.UserID, order.Status, order.Total, order.CreatedAt.UnixMilli(),
		); err != nil {
			return err
		}
		for _, item := range order.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)`,
				order.ID, item.ProductID, item.Quantity, item.Price,
			); err != nil {
				return err
			}
		}

		_, err := tx.ExecContext(ctx, `DELETE FROM basket_items WHERE basket_id = ?`, basket.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// OrderByID returns an order with its items, or (nil, nil).
func (s *Store) OrderByID(ctx context.Context, id string) (*Order, error) {
	var order Order
	var created int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, user_id, status, total, created_at FROM orders WHERE id = ?`, id,
	).Scan(&order.ID, &order.UserID, &order.Status, &order.Total, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	order.CreatedAt = fromMillis(created)

	items, err := s.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// OrdersForUser returns the user's orders, newest first, without items.
func (s *Store) OrdersForUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, user_id, status, total, created_at FROM orders
		 WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var order Order
		var created int64
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.Total, &created); err != nil {
			return nil, err
		}
		order.CreatedAt = fromMillis(created)
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves an order along the lifecycle. Invalid
// transitions report ErrConflict. Cancelling restores product stock.
func (s *Store) UpdateOrderStatus(ctx context.Context, id, next string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !validTransition(current, next) {
			return fmt.Errorf("%w: %s -> %s", ErrConflict, current, next)
		}

		if next == OrderCancelled {
			items, err := s.orderItemsTx(ctx, tx, id)
			if err != nil {
				return err
			}
			for _, item := range items {
				if _, err := tx.ExecContext(ctx,
					`UPDATE products SET stock = stock + ? WHERE id = ?`,
					item.Quantity, item.ProductID); err != nil {
					return err
				}
			}
		}

		_, err = tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, next, id)
		return err
	})
}

func (s *Store) orderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = ? ORDER BY product_id`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderItems(rows)
}

func (s *Store) orderItemsTx(ctx context.Context, tx *sql.Tx, orderID string) ([]OrderItem, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT product_id, quantity, price FROM order_items WHERE order_id = ? ORDER BY product_id`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrderItems(rows)
}

func collectOrderItems(rows *sql.Rows) ([]OrderItem, error) {
	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
