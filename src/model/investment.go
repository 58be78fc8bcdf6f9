package model

import (
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// Investment is a user's brokerage relationship. Principal is set only
// by the principal backfill stage and may be absent until then.
type Investment struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"user_id"`
	Brokerage string              `json:"brokerage"`
	Principal decimal.NullDecimal `json:"principal"`
}

func scanInvestment(row *sql.Row) (*Investment, error) {
	var inv Investment
	var principal sql.NullString
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.Brokerage, &principal); err != nil {
		return nil, err
	}
	if principal.Valid {
		p, err := decimal.NewFromString(principal.String)
		if err != nil {
			return nil, err
		}
		inv.Principal = decimal.NullDecimal{Decimal: p, Valid: true}
	}
	return &inv, nil
}

func GetInvestmentByUserID(db DBTX, userID int64) (*Investment, error) {
	row := db.QueryRow(`
	SELECT id, user_id, brokerage, principal
	FROM investments
	WHERE user_id = ?`, userID)
	return scanInvestment(row)
}

// GetOrCreateInvestment resolves an investment by its (user, brokerage)
// key, creating it when absent.
func GetOrCreateInvestment(db DBTX, userID int64, brokerage string) (*Investment, error) {
	row := db.QueryRow(`
	SELECT id, user_id, brokerage, principal
	FROM investments
	WHERE user_id = ? AND brokerage = ?`, userID, brokerage)

	inv, err := scanInvestment(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	res, err := db.Exec(`
	INSERT INTO investments (user_id, brokerage)
	VALUES (?, ?)`, userID, brokerage)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Investment{ID: id, UserID: userID, Brokerage: brokerage}, nil
}

// SetInvestmentPrincipal updates the principal of the investment owned
// by the given user. Returns sql.ErrNoRows when the user has no
// investment row.
func SetInvestmentPrincipal(db DBTX, userID int64, principal decimal.Decimal) error {
	res, err := db.Exec(`UPDATE investments SET principal = ? WHERE user_id = ?`,
		principal.StringFixed(2), userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
