package model

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Account is a cash balance holder. TotalAssets is recomputed by the
// aggregation engine or credited by deposit settlement; nothing else
// writes it.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	TotalAssets   decimal.Decimal `json:"total_assets"`
}

func scanAccount(row *sql.Row) (*Account, error) {
	var a Account
	var totalAssets string
	if err := row.Scan(&a.ID, &a.AccountNumber, &a.AccountName, &totalAssets); err != nil {
		return nil, err
	}
	var err error
	a.TotalAssets, err = decimal.NewFromString(totalAssets)
	if err != nil {
		return nil, fmt.Errorf("invalid total_assets value %q for account %d: %w", totalAssets, a.ID, err)
	}
	return &a, nil
}

func GetAccountByNumber(db DBTX, accountNumber string) (*Account, error) {
	row := db.QueryRow(`
	SELECT id, account_number, account_name, total_assets
	FROM accounts
	WHERE account_number = ?`, accountNumber)
	return scanAccount(row)
}

// GetOrCreateAccount resolves an account by its (account_number,
// account_name) upsert key, creating it when absent.
func GetOrCreateAccount(db DBTX, accountNumber, accountName string) (*Account, error) {
	row := db.QueryRow(`
	SELECT id, account_number, account_name, total_assets
	FROM accounts
	WHERE account_number = ? AND account_name = ?`, accountNumber, accountName)

	account, err := scanAccount(row)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	res, err := db.Exec(`
	INSERT INTO accounts (account_number, account_name, total_assets)
	VALUES (?, ?, '0')`, accountNumber, accountName)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Account{
		ID:            id,
		AccountNumber: accountNumber,
		AccountName:   accountName,
		TotalAssets:   decimal.Zero,
	}, nil
}

// SetAccountTotalAssets overwrites the stored balance. Used only by the
// aggregation engine inside its transaction.
func SetAccountTotalAssets(db DBTX, accountID int64, totalAssets decimal.Decimal) error {
	_, err := db.Exec(`UPDATE accounts SET total_assets = ? WHERE id = ?`,
		totalAssets.StringFixed(2), accountID)
	return err
}
