package model

import (
	"database/sql"
)

// Holding is a security catalog entry. Name and ISIN are independently
// unique; duplicate creation attempts are rejected, never merged.
type Holding struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	ISIN         string          `json:"isin"`
	AssetGroup   string          `json:"asset_group"`
	CurrentPrice sql.NullFloat64 `json:"current_price"`
}

func GetHoldingByISIN(db DBTX, isin string) (*Holding, error) {
	row := db.QueryRow(`
	SELECT id, name, isin, asset_group, current_price
	FROM holdings
	WHERE isin = ?`, isin)

	var h Holding
	if err := row.Scan(&h.ID, &h.Name, &h.ISIN, &h.AssetGroup, &h.CurrentPrice); err != nil {
		return nil, err
	}
	return &h, nil
}

// HoldingNameExists reports whether a holding with the given name is
// already in the catalog.
func HoldingNameExists(db DBTX, name string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(1) FROM holdings WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HoldingISINExists reports whether a holding with the given ISIN is
// already in the catalog.
func HoldingISINExists(db DBTX, isin string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(1) FROM holdings WHERE isin = ?`, isin).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateHolding inserts a new catalog entry. The unique constraints on
// name and isin back up the registrar's duplicate checks.
func CreateHolding(db DBTX, name, isin, assetGroup string) (*Holding, error) {
	res, err := db.Exec(`
	INSERT INTO holdings (name, isin, asset_group)
	VALUES (?, ?, ?)`, name, isin, assetGroup)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Holding{ID: id, Name: name, ISIN: isin, AssetGroup: assetGroup}, nil
}

// UpdateHoldingPrice refreshes the catalog's current market price.
func UpdateHoldingPrice(db DBTX, holdingID int64, currentPrice float64) error {
	_, err := db.Exec(`UPDATE holdings SET current_price = ? WHERE id = ?`,
		currentPrice, holdingID)
	return err
}
