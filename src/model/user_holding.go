package model

import (
	"database/sql"
	"errors"
)

// UserHolding is a position: a user's quantity of a holding. The
// current_price is copied from the holding at ingestion time, not
// shared with it.
type UserHolding struct {
	ID           int64           `json:"id"`
	HoldingID    sql.NullInt64   `json:"holding_id"`
	UserID       sql.NullInt64   `json:"user_id"`
	Quantity     int64           `json:"quantity"`
	CurrentPrice sql.NullFloat64 `json:"current_price"`
}

// UpsertUserHolding creates or updates the position identified by the
// (holding, user) pair, setting quantity and current_price in both
// cases.
func UpsertUserHolding(db DBTX, holdingID, userID int64, quantity int64, currentPrice float64) error {
	row := db.QueryRow(`
	SELECT id FROM users_holdings
	WHERE holding_id = ? AND user_id = ?`, holdingID, userID)

	var id int64
	err := row.Scan(&id)
	if err == nil {
		_, err = db.Exec(`
		UPDATE users_holdings SET quantity = ?, current_price = ?
		WHERE id = ?`, quantity, currentPrice, id)
		return err
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = db.Exec(`
	INSERT INTO users_holdings (holding_id, user_id, quantity, current_price)
	VALUES (?, ?, ?, ?)`, holdingID, userID, quantity, currentPrice)
	return err
}

// GetUserHoldings returns all positions for a user.
func GetUserHoldings(db DBTX, userID int64) ([]UserHolding, error) {
	rows, err := db.Query(`
	SELECT id, holding_id, user_id, quantity, current_price
	FROM users_holdings
	WHERE user_id = ?
	ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []UserHolding
	for rows.Next() {
		var uh UserHolding
		if err := rows.Scan(&uh.ID, &uh.HoldingID, &uh.UserID, &uh.Quantity, &uh.CurrentPrice); err != nil {
			return nil, err
		}
		positions = append(positions, uh)
	}
	return positions, rows.Err()
}
