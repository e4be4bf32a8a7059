package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/falsenine/storefront/internal/domain"
)

// PostgresLedger implements domain.OrderLedger on PostgreSQL.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

var _ domain.OrderLedger = (*PostgresLedger)(nil)

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// Save writes the order and its lines in one transaction. The insert is
// idempotent on order_id: a duplicate save changes nothing and returns the
// stored id.
func (l *PostgresLedger) Save(ctx context.Context, order *domain.Order) (string, error) {
	const op = "ledger.save"

	if err := ValidateOrder(order); err != nil {
		return "", err
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return "", domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO orders (
			order_id, user_id, user_email, status, total_amount, currency,
			ship_full_name, ship_phone, ship_line1, ship_line2,
			ship_city, ship_state, ship_postal_code, ship_country,
			gateway_order_id, gateway_payment_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (order_id) DO NOTHING`,
		order.OrderID, order.UserID, order.UserEmail, order.Status,
		order.TotalAmount, order.Currency,
		order.ShippingAddress.FullName, order.ShippingAddress.PhoneNumber,
		order.ShippingAddress.AddressLine1, pgText(order.ShippingAddress.AddressLine2),
		order.ShippingAddress.City, order.ShippingAddress.State,
		order.ShippingAddress.PostalCode, order.ShippingAddress.Country,
		pgText(order.GatewayOrderID), pgText(order.GatewayPaymentID),
		order.CreatedAt,
	)
	if err != nil {
		return "", domain.Internal(err, op, "failed to insert order")
	}

	if tag.RowsAffected() == 0 {
		// Already recorded; first write wins.
		return order.OrderID, nil
	}

	for _, line := range order.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, quantity,
				unit_price, line_total, size, image
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.OrderID, line.ProductID, line.ProductName, line.Quantity,
			line.UnitPrice, line.LineTotal, pgText(line.Size), pgText(line.Image),
		)
		if err != nil {
			return "", domain.Internal(err, op, "failed to insert order item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.Internal(err, op, "failed to commit order")
	}
	return order.OrderID, nil
}

func (l *PostgresLedger) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	const op = "ledger.get"

	row := l.pool.QueryRow(ctx, `
		SELECT order_id, user_id, user_email, status, total_amount, currency,
			ship_full_name, ship_phone, ship_line1, ship_line2,
			ship_city, ship_state, ship_postal_code, ship_country,
			gateway_order_id, gateway_payment_id, created_at
		FROM orders WHERE order_id = $1`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound(op, "order", orderID)
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}

	if err := l.loadItems(ctx, order); err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}
	return order, nil
}

func (l *PostgresLedger) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const op = "ledger.list_by_user"

	rows, err := l.pool.Query(ctx, `
		SELECT order_id, user_id, user_email, status, total_amount, currency,
			ship_full_name, ship_phone, ship_line1, ship_line2,
			ship_city, ship_state, ship_postal_code, ship_country,
			gateway_order_id, gateway_payment_id, created_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}
	defer rows.Close()

	return l.collect(ctx, rows, op)
}

func (l *PostgresLedger) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	const op = "ledger.list_recent"

	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT order_id, user_id, user_email, status, total_amount, currency,
			ship_full_name, ship_phone, ship_line1, ship_line2,
			ship_city, ship_state, ship_postal_code, ship_country,
			gateway_order_id, gateway_payment_id, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list recent orders")
	}
	defer rows.Close()

	return l.collect(ctx, rows, op)
}

func (l *PostgresLedger) collect(ctx context.Context, rows pgx.Rows, op string) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan order")
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read orders")
	}

	for i := range orders {
		if err := l.loadItems(ctx, &orders[i]); err != nil {
			return nil, domain.Internal(err, op, "failed to load order items")
		}
	}
	return orders, nil
}

func (l *PostgresLedger) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := l.pool.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price, line_total, size, image
		FROM order_items WHERE order_id = $1
		ORDER BY id`, order.OrderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		var size, image pgtype.Text
		if err := rows.Scan(&line.ProductID, &line.ProductName, &line.Quantity,
			&line.UnitPrice, &line.LineTotal, &size, &image); err != nil {
			return err
		}
		line.Size = size.String
		line.Image = image.String
		order.Items = append(order.Items, line)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var line2, gatewayOrderID, gatewayPaymentID pgtype.Text

	err := row.Scan(
		&order.OrderID, &order.UserID, &order.UserEmail, &order.Status,
		&order.TotalAmount, &order.Currency,
		&order.ShippingAddress.FullName, &order.ShippingAddress.PhoneNumber,
		&order.ShippingAddress.AddressLine1, &line2,
		&order.ShippingAddress.City, &order.ShippingAddress.State,
		&order.ShippingAddress.PostalCode, &order.ShippingAddress.Country,
		&gatewayOrderID, &gatewayPaymentID, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.ShippingAddress.AddressLine2 = line2.String
	order.GatewayOrderID = gatewayOrderID.String
	order.GatewayPaymentID = gatewayPaymentID.String
	return &order, nil
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
