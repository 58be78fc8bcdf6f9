package model

import (
	"database/sql"
	"errors"
	"time"
)

// User owns exactly one Account and at most one Investment. The
// one-to-one with Account is enforced by the UNIQUE(account_id)
// constraint. AccountID goes NULL if the account row disappears.
type User struct {
	ID        int64         `json:"id"`
	AccountID sql.NullInt64 `json:"account_id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func GetUserByID(db DBTX, id int64) (*User, error) {
	row := db.QueryRow(`
	SELECT id, account_id, name, created_at, updated_at
	FROM users
	WHERE id = ?`, id)

	var u User
	if err := row.Scan(&u.ID, &u.AccountID, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByAccountID(db DBTX, accountID int64) (*User, error) {
	row := db.QueryRow(`
	SELECT id, account_id, name, created_at, updated_at
	FROM users
	WHERE account_id = ?`, accountID)

	var u User
	if err := row.Scan(&u.ID, &u.AccountID, &u.Name, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreateUser resolves a user by its (account, name) key, creating
// it when absent.
func GetOrCreateUser(db DBTX, accountID int64, name string) (*User, error) {
	row := db.QueryRow(`
	SELECT id, account_id, name, created_at, updated_at
	FROM users
	WHERE account_id = ? AND name = ?`, accountID, name)

	var u User
	err := row.Scan(&u.ID, &u.AccountID, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now()
	res, err := db.Exec(`
	INSERT INTO users (account_id, name, created_at, updated_at)
	VALUES (?, ?, ?, ?)`, accountID, name, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		AccountID: sql.NullInt64{Int64: accountID, Valid: true},
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ListUserIDs returns the ids of every user, for the full aggregation
// pass.
func ListUserIDs(db DBTX) ([]int64, error) {
	rows, err := db.Query(`SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
