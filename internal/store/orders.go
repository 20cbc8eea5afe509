package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kcasko/savepointapparel/internal/models"
)

// ErrDuplicateOrder is returned when an order already exists for the Stripe
// session id. The UNIQUE index on stripe_session_id is the real guard;
// concurrent webhook deliveries for the same session both hit it and only
// one row ever lands.
var ErrDuplicateOrder = errors.New("order already exists for session")

var ErrOrderNotFound = errors.New("order not found")

// CreateOrder inserts the order with its items and shipping address in one
// transaction. The caller supplies everything except ID, which is assigned
// here.
func (s *Store) CreateOrder(order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO orders (id, stripe_session_id, printful_order_id, customer_email, customer_name, customer_phone, total_amount, currency, payment_status, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, order.ID, order.StripeSessionID, order.PrintfulOrderID, order.CustomerEmail, order.CustomerName, order.CustomerPhone,
		order.TotalAmount, order.Currency, order.PaymentStatus, order.Status)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(`
			INSERT INTO order_items (order_id, product_id, product_name, sync_variant_id, quantity, price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, order.ID, item.ProductID, item.ProductName, item.SyncVariantID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	addr := order.ShippingAddress
	_, err = tx.Exec(`
		INSERT INTO shipping_addresses (order_id, name, address1, address2, city, state_code, country_code, zip, phone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, order.ID, addr.Name, addr.Address1, addr.Address2, addr.City, addr.StateCode, addr.CountryCode, addr.Zip, addr.Phone)
	if err != nil {
		return fmt.Errorf("insert shipping address: %w", err)
	}

	return tx.Commit()
}

func (s *Store) GetOrderBySessionID(sessionID string) (*models.Order, error) {
	row := s.DB.QueryRow(`
		SELECT id, stripe_session_id, COALESCE(printful_order_id, ''), customer_email, customer_name, COALESCE(customer_phone, ''), total_amount, currency, payment_status, status, created_at
		FROM orders WHERE stripe_session_id = ?
	`, sessionID)

	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadOrderDetails(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Store) GetOrdersByEmail(email string) ([]models.Order, error) {
	rows, err := s.DB.Query(`
		SELECT id, stripe_session_id, COALESCE(printful_order_id, ''), customer_email, customer_name, COALESCE(customer_phone, ''), total_amount, currency, payment_status, status, created_at
		FROM orders
		WHERE LOWER(customer_email) = LOWER(?)
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) GetAllOrders(limit, offset int) ([]models.Order, error) {
	rows, err := s.DB.Query(`
		SELECT id, stripe_session_id, COALESCE(printful_order_id, ''), customer_email, customer_name, COALESCE(customer_phone, ''), total_amount, currency, payment_status, status, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *Store) GetTotalOrdersCount() (int, error) {
	var count int
	err := s.DB.QueryRow("SELECT COUNT(*) FROM orders").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetFulfillmentID records the Printful order id and moves the order to
// PROCESSING.
func (s *Store) SetFulfillmentID(sessionID, printfulOrderID string) error {
	res, err := s.DB.Exec(`
		UPDATE orders SET printful_order_id = ?, status = ? WHERE stripe_session_id = ?
	`, printfulOrderID, models.OrderStatusProcessing, sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *Store) UpdateOrderStatus(id, status string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("invalid order status %q", status)
	}
	res, err := s.DB.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.StripeSessionID, &o.PrintfulOrderID, &o.CustomerEmail, &o.CustomerName, &o.CustomerPhone,
		&o.TotalAmount, &o.Currency, &o.PaymentStatus, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (s *Store) loadOrderDetails(order *models.Order) error {
	rows, err := s.DB.Query(`
		SELECT id, product_id, product_name, COALESCE(sync_variant_id, 0), quantity, price
		FROM order_items WHERE order_id = ? ORDER BY id
	`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.SyncVariantID, &item.Quantity, &item.Price); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	addr := &order.ShippingAddress
	err = s.DB.QueryRow(`
		SELECT name, address1, COALESCE(address2, ''), city, state_code, country_code, zip, COALESCE(phone, '')
		FROM shipping_addresses WHERE order_id = ?
	`, order.ID).Scan(&addr.Name, &addr.Address1, &addr.Address2, &addr.City, &addr.StateCode, &addr.CountryCode, &addr.Zip, &addr.Phone)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	return nil
}
