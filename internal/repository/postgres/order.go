package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"

	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/pkg/database"
	apperrors "github.com/patelpratyush/neomart-demo/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the order schema migrations rooted at the migration
// directory, ready for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const insertOrderSQL = `
	INSERT INTO orders (id, number, session_id, status, mode, subtotal, delivery_fee, tax, total, currency, address, delivery_window, placed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const insertItemSQL = `
	INSERT INTO order_items (order_id, position, product_id, name, source, unit, price, quantity, subtotal)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// selectOrderSQL fetches orders with their lines folded into one JSONB
// array so a lookup is a single round trip.
const selectOrderSQL = `
	SELECT
		o.id::text, o.number, o.session_id, o.status, o.mode,
		o.subtotal, o.delivery_fee, o.tax, o.total, o.currency,
		o.address, o.delivery_window, o.placed_at,
		COALESCE(
			JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'product_id', oi.product_id,
					'name', oi.name,
					'source', oi.source,
					'unit', oi.unit,
					'price', oi.price,
					'quantity', oi.quantity,
					'subtotal', oi.subtotal
				) ORDER BY oi.position
			) FILTER (WHERE oi.order_id IS NOT NULL),
			'[]'::jsonb
		) AS lines
	FROM orders o
	LEFT JOIN order_items oi ON o.id = oi.order_id`

const groupOrderSQL = `
	GROUP BY o.id`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and its lines atomically within a transaction.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertOrder", insertOrderSQL)
	defer func() { end(err) }()

	var addressJSON []byte
	if o.Address != nil {
		addressJSON, err = json.Marshal(o.Address)
		if err != nil {
			return fmt.Errorf("marshal address: %w", err)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID,
		o.Number,
		o.SessionID,
		string(o.Status),
		string(o.Mode),
		o.Subtotal,
		o.DeliveryFee,
		o.Tax,
		o.Total,
		o.Currency,
		addressJSON,
		o.DeliveryWindow,
		o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, line := range o.Lines {
		_, err = tx.Exec(ctx, insertItemSQL,
			o.ID,
			i,
			line.ProductID,
			line.Name,
			string(line.Source),
			line.Unit,
			line.Price,
			line.Quantity,
			line.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item %s: %w", line.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o           domain.Order
		status      string
		mode        string
		addressJSON []byte
		linesJSON   []byte
	)

	err := row.Scan(
		&o.ID,
		&o.Number,
		&o.SessionID,
		&status,
		&mode,
		&o.Subtotal,
		&o.DeliveryFee,
		&o.Tax,
		&o.Total,
		&o.Currency,
		&addressJSON,
		&o.DeliveryWindow,
		&o.PlacedAt,
		&linesJSON,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	o.Mode = domain.DeliveryMode(mode)

	if len(addressJSON) > 0 && string(addressJSON) != "null" {
		var addr domain.Address
		if err := json.Unmarshal(addressJSON, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal address: %w", err)
		}
		o.Address = &addr
	}

	o.Lines = []domain.OrderLine{}
	if len(linesJSON) > 0 && string(linesJSON) != "null" && string(linesJSON) != "[]" {
		if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal order lines: %w", err)
		}
	}

	return &o, nil
}

// GetByID retrieves an order by its ID, eagerly loading its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	query := selectOrderSQL + `
	WHERE o.id::text = $1` + groupOrderSQL

	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return o, nil
}

// ListBySession returns up to limit orders placed by the session, newest
// first.
func (r *OrderRepository) ListBySession(ctx context.Context, sessionID string, limit int) (orders []domain.Order, err error) {
	query := selectOrderSQL + `
	WHERE o.session_id = $1` + groupOrderSQL + `
	ORDER BY o.placed_at DESC
	LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "ListOrdersBySession", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders = make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}
