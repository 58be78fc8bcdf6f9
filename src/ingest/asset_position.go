// backend/src/ingest/asset_position.go
package ingest

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
)

// assetPositionRow is the structured schema of one asset-position CSV
// row: user_name, brokerage, account_number, account_name, isin,
// current_price, quantity.
type assetPositionRow struct {
	UserName      string
	Brokerage     string
	AccountNumber string
	AccountName   string
	ISIN          string
	CurrentPrice  float64
	Quantity      int64
}

func parseAssetPositionRow(record []string) (assetPositionRow, error) {
	if len(record) < 7 {
		return assetPositionRow{}, fmt.Errorf("expected 7 fields, got %d", len(record))
	}
	row := assetPositionRow{
		UserName:      strings.TrimSpace(record[0]),
		Brokerage:     strings.TrimSpace(record[1]),
		AccountNumber: strings.TrimSpace(record[2]),
		AccountName:   strings.TrimSpace(record[3]),
		ISIN:          strings.TrimSpace(record[4]),
	}
	priceStr := strings.TrimSpace(record[5])
	quantityStr := strings.TrimSpace(record[6])

	if row.UserName == "" || row.Brokerage == "" || row.AccountNumber == "" ||
		row.AccountName == "" || row.ISIN == "" || priceStr == "" || quantityStr == "" {
		return assetPositionRow{}, errors.New("row is missing required fields")
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return assetPositionRow{}, fmt.Errorf("invalid current_price %q", priceStr)
	}
	quantity, err := strconv.ParseInt(quantityStr, 10, 64)
	if err != nil {
		return assetPositionRow{}, fmt.Errorf("invalid quantity %q", quantityStr)
	}
	if quantity < 0 {
		return assetPositionRow{}, fmt.Errorf("negative quantity %d", quantity)
	}

	row.CurrentPrice = price
	row.Quantity = quantity
	return row, nil
}

// AssetPositionIngestor maps brokerage positions onto accounts, users,
// investments and user holdings. It resolves holdings by ISIN, so the
// asset-group registrar must have run first.
type AssetPositionIngestor struct {
	db model.DBTX
}

func NewAssetPositionIngestor(db model.DBTX) *AssetPositionIngestor {
	return &AssetPositionIngestor{db: db}
}

// IngestFile opens and ingests an asset-position CSV file.
func (ing *AssetPositionIngestor) IngestFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset position ingestor: %w", err)
	}
	defer f.Close()
	if err := checkExtractContent(f); err != nil {
		return nil, fmt.Errorf("asset position ingestor: %w", err)
	}
	return ing.Ingest(f)
}

// Ingest reads the file row by row, skipping the header. Each row's
// upserts run in autocommit mode: a row that fails midway is reported
// as a failure and the file keeps going.
func (ing *AssetPositionIngestor) Ingest(file io.Reader) (*Result, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("asset position ingestor: failed to read CSV header: %w", err)
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
			logger.L.Debug("Asset position row rejected", "record", recordNum, "error", err)
			result.fail(recordNum, err)
			continue
		}
		result.success()
	}

	logger.L.Info("Asset position ingestion finished",
		"total", result.TotalRows, "success", result.SuccessRows, "failed", result.FailedRows)
	return result, nil
}

func (ing *AssetPositionIngestor) ingestRow(record []string) error {
	row, err := parseAssetPositionRow(record)
	if err != nil {
		return err
	}

	holding, err := model.GetHoldingByISIN(ing.db, row.ISIN)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no holding registered for ISIN %q", row.ISIN)
		}
		return err
	}
	if err := model.UpdateHoldingPrice(ing.db, holding.ID, row.CurrentPrice); err != nil {
		return err
	}

	account, err := model.GetOrCreateAccount(ing.db, row.AccountNumber, row.AccountName)
	if err != nil {
		return err
	}
	user, err := model.GetOrCreateUser(ing.db, account.ID, row.UserName)
	if err != nil {
		return err
	}
	if _, err := model.GetOrCreateInvestment(ing.db, user.ID, row.Brokerage); err != nil {
		return err
	}

	return model.UpsertUserHolding(ing.db, holding.ID, user.ID, row.Quantity, row.CurrentPrice)
}
