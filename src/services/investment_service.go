// backend/src/services/investment_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
)

const (
	ckInvestmentView   = "view_investment_user_%d"
	ckInvestmentDetail = "view_investment_detail_%d"
	ckUserHoldings     = "view_holdings_user_%d"
)

// InvestmentView is the per-user investment summary.
type InvestmentView struct {
	Name               string          `json:"name"`
	AccountNumber      string          `json:"account_number"`
	AccountName        string          `json:"account_name"`
	Brokerage          string          `json:"brokerage"`
	AccountTotalAssets decimal.Decimal `json:"account_total_assets"`
	InvestmentID       int64           `json:"investment"`
}

// InvestmentDetailView adds the computed proceeds figures. They are
// omitted while the principal backfill has not run (or principal is
// zero), since there is nothing to compute against.
type InvestmentDetailView struct {
	AccountName        string           `json:"account_name"`
	Brokerage          string           `json:"brokerage"`
	AccountNumber      string           `json:"account_number"`
	AccountTotalAssets decimal.Decimal  `json:"account_total_assets"`
	Principal          *decimal.Decimal `json:"principal"`
	TotalProceeds      *decimal.Decimal `json:"total_proceeds,omitempty"`
	ProceedsRate       *decimal.Decimal `json:"proceeds_rate,omitempty"`
	UserID             int64            `json:"user"`
}

// HoldingView is one row of the per-user holdings screen.
type HoldingView struct {
	HoldingName     string  `json:"holding_name"`
	AssetGroup      string  `json:"asset_group"`
	ISIN            string  `json:"isin"`
	AppraisalAmount float64 `json:"appraisal_amount"`
}

// InvestmentService serves the read-side account/holding snapshots,
// cached between batch runs.
type InvestmentService struct {
	db        *sql.DB
	viewCache *cache.Cache
	cacheTTL  time.Duration
}

func NewInvestmentService(db *sql.DB, viewCache *cache.Cache, cacheTTL time.Duration) *InvestmentService {
	return &InvestmentService{
		db:        db,
		viewCache: viewCache,
		cacheTTL:  cacheTTL,
	}
}

// InvalidateViews drops every cached snapshot. Called after each batch
// run so readers never see pre-aggregation balances past one run.
func (s *InvestmentService) InvalidateViews() {
	s.viewCache.Flush()
	logger.L.Debug("Read-side view cache flushed")
}

// GetInvestmentView returns the investment summary for a user.
func (s *InvestmentService) GetInvestmentView(userID int64) (*InvestmentView, error) {
	cacheKey := fmt.Sprintf(ckInvestmentView, userID)
	if cached, found := s.viewCache.Get(cacheKey); found {
		return cached.(*InvestmentView), nil
	}

	row := s.db.QueryRow(`
	SELECT u.name, a.account_number, a.account_name, a.total_assets, i.brokerage, i.id
	FROM users u
	JOIN accounts a ON a.id = u.account_id
	JOIN investments i ON i.user_id = u.id
	WHERE u.id = ?`, userID)

	var view InvestmentView
	var totalAssets string
	if err := row.Scan(&view.Name, &view.AccountNumber, &view.AccountName,
		&totalAssets, &view.Brokerage, &view.InvestmentID); err != nil {
		return nil, err
	}
	var err error
	view.AccountTotalAssets, err = decimal.NewFromString(totalAssets)
	if err != nil {
		return nil, fmt.Errorf("invalid total_assets for user %d: %w", userID, err)
	}

	s.viewCache.Set(cacheKey, &view, s.cacheTTL)
	return &view, nil
}

// GetInvestmentDetail returns one investment with its proceeds figures:
// total_proceeds = total_assets - principal and
// proceeds_rate = (total_assets - principal) / (principal * 100),
// rounded to 4 places.
func (s *InvestmentService) GetInvestmentDetail(investmentID int64) (*InvestmentDetailView, error) {
	cacheKey := fmt.Sprintf(ckInvestmentDetail, investmentID)
	if cached, found := s.viewCache.Get(cacheKey); found {
		return cached.(*InvestmentDetailView), nil
	}

	row := s.db.QueryRow(`
	SELECT a.account_name, i.brokerage, a.account_number, a.total_assets, i.principal, u.id
	FROM investments i
	JOIN users u ON u.id = i.user_id
	JOIN accounts a ON a.id = u.account_id
	WHERE i.id = ?`, investmentID)

	var view InvestmentDetailView
	var totalAssets string
	var principal sql.NullString
	if err := row.Scan(&view.AccountName, &view.Brokerage, &view.AccountNumber,
		&totalAssets, &principal, &view.UserID); err != nil {
		return nil, err
	}

	assets, err := decimal.NewFromString(totalAssets)
	if err != nil {
		return nil, fmt.Errorf("invalid total_assets for investment %d: %w", investmentID, err)
	}
	view.AccountTotalAssets = assets

	if principal.Valid {
		p, err := decimal.NewFromString(principal.String)
		if err != nil {
			return nil, fmt.Errorf("invalid principal for investment %d: %w", investmentID, err)
		}
		view.Principal = &p
		if !p.IsZero() {
			proceeds := assets.Sub(p)
			rate := proceeds.Div(p.Mul(decimal.NewFromInt(100))).Round(4)
			view.TotalProceeds = &proceeds
			view.ProceedsRate = &rate
		}
	}

	s.viewCache.Set(cacheKey, &view, s.cacheTTL)
	return &view, nil
}

// GetUserHoldingViews returns the user's positions with their appraisal
// amount (quantity x current price).
func (s *InvestmentService) GetUserHoldingViews(userID int64) ([]HoldingView, error) {
	cacheKey := fmt.Sprintf(ckUserHoldings, userID)
	if cached, found := s.viewCache.Get(cacheKey); found {
		return cached.([]HoldingView), nil
	}

	rows, err := s.db.Query(`
	SELECT h.name, h.asset_group, h.isin, uh.quantity, uh.current_price
	FROM users_holdings uh
	JOIN holdings h ON h.id = uh.holding_id
	WHERE uh.user_id = ?
	ORDER BY uh.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []HoldingView{}
	for rows.Next() {
		var v HoldingView
		var quantity int64
		var price sql.NullFloat64
		if err := rows.Scan(&v.HoldingName, &v.AssetGroup, &v.ISIN, &quantity, &price); err != nil {
			return nil, err
		}
		v.AppraisalAmount = float64(quantity) * price.Float64
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.viewCache.Set(cacheKey, views, s.cacheTTL)
	return views, nil
}
