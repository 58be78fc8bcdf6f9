package model

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DepositLog records one deposit claim, pending until settled. The
// status transitions pending -> settled exactly once; there is no way
// back.
type DepositLog struct {
	ID             int64           `json:"id"`
	UserName       string          `json:"user_name"`
	AccountNumber  string          `json:"account_number"`
	TransferAmount decimal.Decimal `json:"transfer_amount"`
	Exp            time.Time       `json:"exp"`
	Signature      string          `json:"-"`
	Settled        bool            `json:"settled"`
}

// CreateDepositLog inserts a pending claim and returns its row id,
// which doubles as the transfer identifier handed to the caller.
func CreateDepositLog(db DBTX, log *DepositLog) (int64, error) {
	res, err := db.Exec(`
	INSERT INTO deposit_logs (user_name, account_number, transfer_amount, exp, signature, status)
	VALUES (?, ?, ?, ?, ?, 0)`,
		log.UserName, log.AccountNumber, log.TransferAmount.StringFixed(2), log.Exp, log.Signature)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	log.ID = id
	return id, nil
}

func GetDepositLogByID(db DBTX, id int64) (*DepositLog, error) {
	row := db.QueryRow(`
	SELECT id, user_name, account_number, transfer_amount, exp, signature, status
	FROM deposit_logs
	WHERE id = ?`, id)

	var log DepositLog
	var amount string
	if err := row.Scan(&log.ID, &log.UserName, &log.AccountNumber, &amount, &log.Exp, &log.Signature, &log.Settled); err != nil {
		return nil, err
	}
	var err error
	log.TransferAmount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer_amount %q for deposit log %d: %w", amount, log.ID, err)
	}
	return &log, nil
}

// MarkDepositLogSettled flips a pending claim to settled. Returns
// sql.ErrNoRows when the claim is missing or already settled, so a
// replayed settlement cannot pass this point twice.
func MarkDepositLogSettled(db DBTX, id int64) error {
	res, err := db.Exec(`UPDATE deposit_logs SET status = 1 WHERE id = ? AND status = 0`, id)
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
