package deposit

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
	_ "modernc.org/sqlite"
)

const testSecret = "test-deposit-secret"

func setupDepositTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	logger.InitLogger("error")

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_number TEXT NOT NULL,
			account_name TEXT NOT NULL,
			total_assets TEXT NOT NULL DEFAULT '0',
			UNIQUE (account_number, account_name)
		);
		CREATE TABLE deposit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name TEXT NOT NULL,
			account_number TEXT NOT NULL,
			transfer_amount TEXT NOT NULL,
			exp TIMESTAMP NOT NULL,
			signature TEXT NOT NULL,
			status INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

func seedAccount(t *testing.T, db *sql.DB, accountNumber, balance string) {
	t.Helper()
	_, err := db.Exec(`
	INSERT INTO accounts (account_number, account_name, total_assets)
	VALUES (?, 'Test Account', ?)`, accountNumber, balance)
	if err != nil {
		t.Fatalf("Failed to seed account: %v", err)
	}
}

func storedSignature(t *testing.T, db *sql.DB, transferID int64) string {
	t.Helper()
	var signature string
	err := db.QueryRow(`SELECT signature FROM deposit_logs WHERE id = ?`, transferID).Scan(&signature)
	if err != nil {
		t.Fatalf("Failed to read stored signature: %v", err)
	}
	return signature
}

func accountBalance(t *testing.T, db *sql.DB, accountNumber string) decimal.Decimal {
	t.Helper()
	account, err := model.GetAccountByNumber(db, accountNumber)
	if err != nil {
		t.Fatalf("Failed to load account: %v", err)
	}
	return account.TotalAssets
}

func TestIssueAndSettleClaim(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()
	seedAccount(t, db, "1111", "1000.00")

	svc := NewService(db, testSecret, 72*time.Hour)

	transferID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}
	if transferID == 0 {
		t.Fatal("Expected a nonzero transfer identifier")
	}

	if err := svc.SettleClaim(transferID, storedSignature(t, db, transferID)); err != nil {
		t.Fatalf("SettleClaim failed: %v", err)
	}

	if got := accountBalance(t, db, "1111"); !got.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected balance 1500, got %s", got.String())
	}

	depositLog, err := model.GetDepositLogByID(db, transferID)
	if err != nil {
		t.Fatalf("Failed to load deposit log: %v", err)
	}
	if !depositLog.Settled {
		t.Error("Expected deposit log to be settled")
	}
}

func TestSettleClaimReplayRejected(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()
	seedAccount(t, db, "1111", "1000.00")

	svc := NewService(db, testSecret, 72*time.Hour)
	transferID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}
	signature := storedSignature(t, db, transferID)

	if err := svc.SettleClaim(transferID, signature); err != nil {
		t.Fatalf("First settlement failed: %v", err)
	}
	if err := svc.SettleClaim(transferID, signature); !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("Expected ErrAlreadySettled, got %v", err)
	}

	if got := accountBalance(t, db, "1111"); !got.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Replay must not credit again, balance is %s", got.String())
	}
}

func TestSettleClaimMismatchedDetails(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()
	seedAccount(t, db, "1111", "1000.00")

	svc := NewService(db, testSecret, 72*time.Hour)
	transferID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}
	otherID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(999))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}

	// A validly signed claim for a different amount must not settle this
	// transfer.
	err = svc.SettleClaim(transferID, storedSignature(t, db, otherID))
	if !errors.Is(err, ErrClaimMismatch) {
		t.Fatalf("Expected ErrClaimMismatch, got %v", err)
	}

	if got := accountBalance(t, db, "1111"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Rejected settlement must not move the balance, got %s", got.String())
	}
}

func TestSettleClaimExpired(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()
	seedAccount(t, db, "1111", "1000.00")

	svc := NewService(db, testSecret, 72*time.Hour)
	svc.now = func() time.Time { return time.Now().Add(-96 * time.Hour) }

	transferID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}

	err = svc.SettleClaim(transferID, storedSignature(t, db, transferID))
	if !errors.Is(err, ErrClaimExpired) {
		t.Fatalf("Expected ErrClaimExpired, got %v", err)
	}

	if got := accountBalance(t, db, "1111"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expired settlement must not move the balance, got %s", got.String())
	}
}

func TestSettleClaimUnknownTransfer(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()

	svc := NewService(db, testSecret, 72*time.Hour)
	if err := svc.SettleClaim(42, "irrelevant"); !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("Expected ErrClaimNotFound, got %v", err)
	}
}

func TestSettleClaimForeignSignature(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()
	seedAccount(t, db, "1111", "1000.00")

	svc := NewService(db, testSecret, 72*time.Hour)
	transferID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}

	// Same claim contents signed under a different secret.
	forger := NewService(db, "some-other-secret", 72*time.Hour)
	forgedID, err := forger.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}

	err = svc.SettleClaim(transferID, storedSignature(t, db, forgedID))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("Expected ErrInvalidSignature, got %v", err)
	}

	if got := accountBalance(t, db, "1111"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Forged settlement must not move the balance, got %s", got.String())
	}
}

func TestSettleClaimConcurrentCreditsOnce(t *testing.T) {
	db, cleanup := setupDepositTestDB(t)
	defer cleanup()
	seedAccount(t, db, "1111", "1000.00")

	svc := NewService(db, testSecret, 72*time.Hour)
	transferID, err := svc.IssueClaim("Hana", "1111", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("IssueClaim failed: %v", err)
	}
	signature := storedSignature(t, db, transferID)

	const attempts = 8
	results := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.SettleClaim(transferID, signature)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadySettled):
		default:
			t.Errorf("Unexpected settlement error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("Expected exactly one successful settlement, got %d", successes)
	}

	if got := accountBalance(t, db, "1111"); !got.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected the credit exactly once, balance is %s", got.String())
	}
}
