// Package supply implements supply-order receipt: booking delivered packs
// into medicine stock exactly once per order.
package supply

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"pharmadesk/m/domain"
	"pharmadesk/m/internal/stock"
)

var (
	// ErrOrderNotFound reports an unknown supply-order id.
	ErrOrderNotFound = errors.New("supply order not found")
	// ErrAlreadyReceived rejects a second receipt of the same order.
	ErrAlreadyReceived = errors.New("supply order already received")
)

// Service runs supply-order workflows against the database.
type Service struct {
	db  *sqlx.DB
	log zerolog.Logger
}

func New(db *sqlx.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// MarkReceived books every order line into stock and flips the order to
// received, all in one transaction. A line needs a positive units-per-pack
// value to be booked; lines without one are skipped and logged, and the
// receipt still completes. Receipt is accepted exactly once.
func (s *Service) MarkReceived(ctx context.Context, orderID int64) (*domain.SupplyOrder, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order domain.SupplyOrder
	err = tx.GetContext(ctx, &order,
		`SELECT id, supplier_id, status, received, ordered_at, received_at, created_at FROM supply_orders WHERE id = ?`, orderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	if order.Received {
		return nil, ErrAlreadyReceived
	}

	var items []domain.SupplyOrderItem
	if err := tx.SelectContext(ctx, &items,
		`SELECT id, order_id, medicine_code, quantity, units_per_pack, unit_cost, expiry_date FROM supply_order_items WHERE order_id = ?`, orderID); err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.UnitsPerPack <= 0 {
			s.log.Warn().
				Int64("order_id", orderID).
				Str("medicine_code", item.MedicineCode).
				Int64("units_per_pack", item.UnitsPerPack).
				Msg("skipping supply order line with invalid units per pack")
			continue
		}
		if err := stock.ReceivePacks(tx, item.MedicineCode, item.Quantity, item.UnitsPerPack); err != nil {
			return nil, err
		}
	}

	receivedAt := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE supply_orders SET status = ?, received = 1, received_at = ? WHERE id = ?`,
		domain.SupplyOrderReceived, receivedAt, orderID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Status = domain.SupplyOrderReceived
	order.Received = true
	order.ReceivedAt = &receivedAt

	s.log.Info().
		Int64("order_id", orderID).
		Int("lines", len(items)).
		Msg("supply order received")

	return &order, nil
}
