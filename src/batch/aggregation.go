// backend/src/batch/aggregation.go
package batch

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
)

// Aggregator recomputes every account's total assets from its user's
// current positions. The whole pass runs in one transaction: a failure
// for any single account rolls back all of them.
type Aggregator struct {
	db *sql.DB
}

func NewAggregator(db *sql.DB) *Aggregator {
	return &Aggregator{db: db}
}

// Recalculate sets total_assets = sum(quantity * current_price) over
// each user's positions, zero when the user has none. It is a full
// recompute, so re-running it with no intervening writes is a no-op.
func (a *Aggregator) Recalculate() error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("aggregation: begin transaction: %w", err)
	}
	defer tx.Rollback()

	userIDs, err := model.ListUserIDs(tx)
	if err != nil {
		return fmt.Errorf("aggregation: list users: %w", err)
	}

	for _, userID := range userIDs {
		if err := recalculateUser(tx, userID); err != nil {
			return fmt.Errorf("aggregation: user %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("aggregation: commit: %w", err)
	}
	logger.L.Info("Account total assets recalculated", "users", len(userIDs))
	return nil
}

func recalculateUser(tx *sql.Tx, userID int64) error {
	user, err := model.GetUserByID(tx, userID)
	if err != nil {
		return err
	}
	if !user.AccountID.Valid {
		return fmt.Errorf("user %q has no account", user.Name)
	}

	positions, err := model.GetUserHoldings(tx, userID)
	if err != nil {
		return err
	}

	total := decimal.Zero
	for _, p := range positions {
		value := decimal.NewFromFloat(p.CurrentPrice.Float64).Mul(decimal.NewFromInt(p.Quantity))
		total = total.Add(value)
	}

	return model.SetAccountTotalAssets(tx, user.AccountID.Int64, total)
}
