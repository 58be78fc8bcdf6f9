// backend/src/ingest/asset_group.go
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/username/assetfolio/backend/src/logger"
	"github.com/username/assetfolio/backend/src/model"
)

// assetGroupRow is the structured schema of one asset-group CSV row:
// security_name, isin, asset_group.
type assetGroupRow struct {
	SecurityName string
	ISIN         string
	AssetGroup   string
}

func parseAssetGroupRow(record []string) (assetGroupRow, error) {
	if len(record) < 3 {
		return assetGroupRow{}, fmt.Errorf("expected 3 fields, got %d", len(record))
	}
	row := assetGroupRow{
		SecurityName: strings.TrimSpace(record[0]),
		ISIN:         strings.TrimSpace(record[1]),
		AssetGroup:   strings.TrimSpace(record[2]),
	}
	if row.SecurityName == "" || row.ISIN == "" || row.AssetGroup == "" {
		return assetGroupRow{}, errors.New("row is missing required fields")
	}
	return row, nil
}

// AssetGroupIngestor registers security catalog entries. It only ever
// inserts: duplicate names or ISINs are row failures, never merges.
type AssetGroupIngestor struct {
	db model.DBTX
}

func NewAssetGroupIngestor(db model.DBTX) *AssetGroupIngestor {
	return &AssetGroupIngestor{db: db}
}

// IngestFile opens and ingests an asset-group CSV file. A missing or
// unreadable file is fatal to the stage.
func (ing *AssetGroupIngestor) IngestFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset group ingestor: %w", err)
	}
	defer f.Close()
	if err := checkExtractContent(f); err != nil {
		return nil, fmt.Errorf("asset group ingestor: %w", err)
	}
	return ing.Ingest(f)
}

// Ingest reads the file row by row, skipping the header. Each valid row
// creates one Holding; each invalid row is recorded and skipped.
func (ing *AssetGroupIngestor) Ingest(file io.Reader) (*Result, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields per record

	// Read and discard the header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("asset group ingestor: failed to read CSV header: %w", err)
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
			logger.L.Debug("Asset group row rejected", "record", recordNum, "error", err)
			result.fail(recordNum, err)
			continue
		}
		result.success()
	}

	logger.L.Info("Asset group ingestion finished",
		"total", result.TotalRows, "success", result.SuccessRows, "failed", result.FailedRows)
	return result, nil
}

func (ing *AssetGroupIngestor) ingestRow(record []string) error {
	row, err := parseAssetGroupRow(record)
	if err != nil {
		return err
	}

	nameExists, err := model.HoldingNameExists(ing.db, row.SecurityName)
	if err != nil {
		return err
	}
	if nameExists {
		return fmt.Errorf("duplicate security name %q", row.SecurityName)
	}

	isinExists, err := model.HoldingISINExists(ing.db, row.ISIN)
	if err != nil {
		return err
	}
	if isinExists {
		return fmt.Errorf("duplicate ISIN %q", row.ISIN)
	}

	_, err = model.CreateHolding(ing.db, row.SecurityName, row.ISIN, row.AssetGroup)
	return err
}
