// backend/src/deposit/service.go
package deposit

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
)

var (
	ErrClaimNotFound    = errors.New("deposit claim not found")
	ErrAlreadySettled   = errors.New("deposit claim already settled")
	ErrInvalidSignature = errors.New("deposit claim signature is invalid")
	ErrClaimExpired     = errors.New("deposit claim has expired")
	ErrClaimMismatch    = errors.New("deposit claim does not match the recorded transfer")
)

// Claims is the signed payload of a deposit claim. The token binds the
// transfer details to an expiry; settlement refuses anything that does
// not match the stored DepositLog byte for byte.
type Claims struct {
	UserName       string          `json:"user_name"`
	AccountNumber  string          `json:"account_number"`
	TransferAmount decimal.Decimal `json:"transfer_amount"`
	jwt.RegisteredClaims
}

// Service implements the two-phase deposit settlement protocol:
// IssueClaim hands out a signed, time-limited claim; SettleClaim
// verifies it and credits the account exactly once.
type Service struct {
	db       *sql.DB
	secret   []byte
	claimTTL time.Duration
	now      func() time.Time
}

func NewService(db *sql.DB, secret string, claimTTL time.Duration) *Service {
	return &Service{
		db:       db,
		secret:   []byte(secret),
		claimTTL: claimTTL,
		now:      time.Now,
	}
}

// IssueClaim signs the submitted transfer details with an expiry and
// records a pending DepositLog. The returned transfer identifier is the
// log's row id; the signature itself stays server-side.
func (s *Service) IssueClaim(userName, accountNumber string, amount decimal.Decimal) (int64, error) {
	exp := s.now().Add(s.claimTTL)
	claims := Claims{
		UserName:       userName,
		AccountNumber:  accountNumber,
		TransferAmount: amount,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signature, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return 0, fmt.Errorf("signing deposit claim: %w", err)
	}

	id, err := model.CreateDepositLog(s.db, &model.DepositLog{
		UserName:       userName,
		AccountNumber:  accountNumber,
		TransferAmount: amount,
		Exp:            exp,
		Signature:      signature,
	})
	if err != nil {
		return 0, fmt.Errorf("recording deposit claim: %w", err)
	}

	logger.L.Info("Deposit claim issued", "transferID", id, "accountNumber", accountNumber)
	return id, nil
}

// SettleClaim verifies the supplied signature against the stored
// DepositLog and credits the target account. The status flip and the
// balance credit share one transaction; any failure rolls both back and
// leaves the claim pending. An already-settled claim is rejected even
// when its signature is still valid, so a replayed request cannot
// double-credit.
func (s *Service) SettleClaim(transferID int64, signature string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("settlement: begin transaction: %w", err)
	}
	defer tx.Rollback()

	depositLog, err := model.GetDepositLogByID(tx, transferID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrClaimNotFound
		}
		return fmt.Errorf("settlement: load deposit log %d: %w", transferID, err)
	}
	if depositLog.Settled {
		return ErrAlreadySettled
	}

	claims, err := s.verifySignature(signature)
	if err != nil {
		return err
	}
	if claims.UserName != depositLog.UserName ||
		claims.AccountNumber != depositLog.AccountNumber ||
		!claims.TransferAmount.Equal(depositLog.TransferAmount) {
		return ErrClaimMismatch
	}

	if err := model.MarkDepositLogSettled(tx, transferID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadySettled
		}
		return fmt.Errorf("settlement: mark settled: %w", err)
	}

	// The account read and credit stay inside the settlement
	// transaction; a concurrent settlement on the same account waits on
	// the store's write lock rather than failing fast.
	account, err := model.GetAccountByNumber(tx, depositLog.AccountNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("settlement: no account with number %q", depositLog.AccountNumber)
		}
		return fmt.Errorf("settlement: load account: %w", err)
	}

	newTotal := account.TotalAssets.Add(depositLog.TransferAmount)
	if err := model.SetAccountTotalAssets(tx, account.ID, newTotal); err != nil {
		return fmt.Errorf("settlement: credit account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settlement: commit: %w", err)
	}

	logger.L.Info("Deposit settled", "transferID", transferID,
		"accountNumber", depositLog.AccountNumber, "amount", depositLog.TransferAmount.StringFixed(2))
	return nil
}

func (s *Service) verifySignature(signature string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(signature, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrClaimExpired
		}
		return nil, ErrInvalidSignature
	}
	return claims, nil
}
