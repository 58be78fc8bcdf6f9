package batch

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
	_ "modernc.org/sqlite"
)

func setupBatchTestDB(t *testing.T) (*sql.DB, func()) {
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
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id INTEGER UNIQUE REFERENCES accounts (id) ON DELETE SET NULL,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE holdings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			isin TEXT NOT NULL UNIQUE,
			asset_group TEXT NOT NULL,
			current_price REAL
		);
		CREATE TABLE users_holdings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			holding_id INTEGER REFERENCES holdings (id) ON DELETE SET NULL,
			user_id INTEGER REFERENCES users (id) ON DELETE SET NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			current_price REAL,
			UNIQUE (holding_id, user_id)
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

func seedUserWithPositions(t *testing.T, db *sql.DB, name, accountNumber string, positions [][2]int64) *model.User {
	t.Helper()
	account, err := model.GetOrCreateAccount(db, accountNumber, name+" Account")
	if err != nil {
		t.Fatalf("GetOrCreateAccount failed: %v", err)
	}
	user, err := model.GetOrCreateUser(db, account.ID, name)
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	for i, p := range positions {
		holding, err := model.CreateHolding(db,
			name+" Holding "+string(rune('A'+i)), accountNumber+string(rune('A'+i)), "equity")
		if err != nil {
			t.Fatalf("CreateHolding failed: %v", err)
		}
		if err := model.UpsertUserHolding(db, holding.ID, user.ID, p[0], float64(p[1])); err != nil {
			t.Fatalf("UpsertUserHolding failed: %v", err)
		}
	}
	return user
}

func accountTotal(t *testing.T, db *sql.DB, accountNumber string) decimal.Decimal {
	t.Helper()
	account, err := model.GetAccountByNumber(db, accountNumber)
	if err != nil {
		t.Fatalf("GetAccountByNumber failed: %v", err)
	}
	return account.TotalAssets
}

func TestRecalculateSumsPositions(t *testing.T) {
	db, cleanup := setupBatchTestDB(t)
	defer cleanup()

	// 10*1000 + 20*2000 + 3*3000 = 59000
	seedUserWithPositions(t, db, "Hana", "1111", [][2]int64{{10, 1000}, {20, 2000}, {3, 3000}})

	if err := NewAggregator(db).Recalculate(); err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	got := accountTotal(t, db, "1111")
	if !got.Equal(decimal.NewFromInt(59000)) {
		t.Errorf("Expected total assets 59000, got %s", got.String())
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	db, cleanup := setupBatchTestDB(t)
	defer cleanup()

	seedUserWithPositions(t, db, "Hana", "1111", [][2]int64{{10, 1000}, {20, 2000}, {3, 3000}})

	agg := NewAggregator(db)
	if err := agg.Recalculate(); err != nil {
		t.Fatalf("First recalculate failed: %v", err)
	}
	first := accountTotal(t, db, "1111")

	if err := agg.Recalculate(); err != nil {
		t.Fatalf("Second recalculate failed: %v", err)
	}
	second := accountTotal(t, db, "1111")

	if !first.Equal(second) {
		t.Errorf("Recalculation is not idempotent: %s vs %s", first.String(), second.String())
	}
}

func TestRecalculateZeroesAccountsWithoutPositions(t *testing.T) {
	db, cleanup := setupBatchTestDB(t)
	defer cleanup()

	seedUserWithPositions(t, db, "Min", "2222", nil)

	// A stale balance must be overwritten by the full recompute.
	if _, err := db.Exec(`UPDATE accounts SET total_assets = '123.45' WHERE account_number = '2222'`); err != nil {
		t.Fatalf("Failed to seed stale balance: %v", err)
	}

	if err := NewAggregator(db).Recalculate(); err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	got := accountTotal(t, db, "2222")
	if !got.Equal(decimal.Zero) {
		t.Errorf("Expected total assets 0, got %s", got.String())
	}
}

func TestRecalculateCoversEveryAccount(t *testing.T) {
	db, cleanup := setupBatchTestDB(t)
	defer cleanup()

	seedUserWithPositions(t, db, "Hana", "1111", [][2]int64{{2, 500}})
	seedUserWithPositions(t, db, "Min", "2222", [][2]int64{{5, 100}})

	if err := NewAggregator(db).Recalculate(); err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	if got := accountTotal(t, db, "1111"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected 1000 for account 1111, got %s", got.String())
	}
	if got := accountTotal(t, db, "2222"); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected 500 for account 2222, got %s", got.String())
	}
}

func TestOrchestratorSkipsOverlappingRun(t *testing.T) {
	db, cleanup := setupBatchTestDB(t)
	defer cleanup()

	o := NewOrchestrator(db, CSVPaths{}, nil)
	o.running.Store(true)

	if err := o.Run(); err != ErrRunInProgress {
		t.Fatalf("Expected ErrRunInProgress, got %v", err)
	}
}

func TestNextRun(t *testing.T) {
	tests := []struct {
		name string
		now  string
		hour int
		want string
	}{
		{"before the hour", "2024-03-01T04:30:00Z", 6, "2024-03-01T06:00:00Z"},
		{"after the hour", "2024-03-01T07:00:00Z", 6, "2024-03-02T06:00:00Z"},
		{"exactly on the hour", "2024-03-01T06:00:00Z", 6, "2024-03-02T06:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, _ := time.Parse(time.RFC3339, tt.now)
			want, _ := time.Parse(time.RFC3339, tt.want)
			if got := nextRun(now, tt.hour); !got.Equal(want) {
				t.Errorf("nextRun(%s, %d) = %s, want %s", tt.now, tt.hour, got, tt.want)
			}
		})
	}
}
