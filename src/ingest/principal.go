// backend/src/ingest/principal.go
package ingest

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
)

// principalRow is the structured schema of one principal CSV row:
// account_number, principal.
type principalRow struct {
	AccountNumber string
	Principal     decimal.Decimal
}

func parsePrincipalRow(record []string) (principalRow, error) {
	if len(record) < 2 {
		return principalRow{}, fmt.Errorf("expected 2 fields, got %d", len(record))
	}
	accountNumber := strings.TrimSpace(record[0])
	principalStr := strings.TrimSpace(record[1])
	if accountNumber == "" || principalStr == "" {
		return principalRow{}, errors.New("row is missing required fields")
	}

	principal, err := decimal.NewFromString(principalStr)
	if err != nil {
		return principalRow{}, fmt.Errorf("invalid principal %q", principalStr)
	}
	return principalRow{AccountNumber: accountNumber, Principal: principal}, nil
}

// PrincipalIngestor backfills investment principal by account number.
// It needs existing accounts, so the asset-position mapper must have
// run first.
type PrincipalIngestor struct {
	db model.DBTX
}

func NewPrincipalIngestor(db model.DBTX) *PrincipalIngestor {
	return &PrincipalIngestor{db: db}
}

// IngestFile opens and ingests a principal CSV file.
func (ing *PrincipalIngestor) IngestFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("principal ingestor: %w", err)
	}
	defer f.Close()
	if err := checkExtractContent(f); err != nil {
		return nil, fmt.Errorf("principal ingestor: %w", err)
	}
	return ing.Ingest(f)
}

// Ingest reads the file row by row, skipping the header.
func (ing *PrincipalIngestor) Ingest(file io.Reader) (*Result, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("principal ingestor: failed to read CSV header: %w", err)
	}

	result := newResult()
	recordNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		recordNum++
		if err != nil {
			result.fail(recordNum, err)
			continue
		}

		if err := ing.ingestRow(record); err != nil {
			logger.L.Debug("Principal row rejected", "record", recordNum, "error", err)
			result.fail(recordNum, err)
			continue
		}
		result.success()
	}

	logger.L.Info("Principal ingestion finished",
		"total", result.TotalRows, "success", result.SuccessRows, "failed", result.FailedRows)
	return result, nil
}

func (ing *PrincipalIngestor) ingestRow(record []string) error {
	row, err := parsePrincipalRow(record)
	if err != nil {
		return err
	}

	account, err := model.GetAccountByNumber(ing.db, row.AccountNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no account with number %q", row.AccountNumber)
		}
		return err
	}

	user, err := model.GetUserByAccountID(ing.db, account.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %q has no user", row.AccountNumber)
		}
		return err
	}

	if err := model.SetInvestmentPrincipal(ing.db, user.ID, row.Principal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %q has no investment", user.Name)
		}
		return err
	}
	return nil
}
