// Package stock is the single place that mutates medicine quantities.
// Decrements are conditional so the on-hand count can never go negative,
// even when two sales race on the same medicine.
package stock

import (
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficient is returned when a decrement would drive quantity below
// zero (or the medicine row no longer exists).
var ErrInsufficient = errors.New("insufficient stock")

// Decrement subtracts qty units from the medicine's on-hand count. The update
// only matches when enough stock remains; zero affected rows aborts.
func Decrement(e sqlx.Execer, code string, qty int64) error {
	res, err := e.Exec(`UPDATE medicines
                SET quantity = quantity - ?, updated_at = CURRENT_TIMESTAMP
                WHERE code = ? AND quantity >= ?`, qty, code, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficient
	}
	return nil
}

// Increment restores qty units. Restoring stock for a medicine that has been
// deleted since the sale affects zero rows; callers treat that as done.
func Increment(e sqlx.Execer, code string, qty int64) error {
	_, err := e.Exec(`UPDATE medicines
                SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
                WHERE code = ?`, qty, code)
	return err
}

// ReceivePacks books a supply-order line: packs unopened packs of
// unitsPerPack units each.
func ReceivePacks(e sqlx.Execer, code string, packs, unitsPerPack int64) error {
	_, err := e.Exec(`UPDATE medicines
                SET quantity = quantity + ?, packs = packs + ?, updated_at = CURRENT_TIMESTAMP
                WHERE code = ?`, packs*unitsPerPack, packs, code)
	return err
}
