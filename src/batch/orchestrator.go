// backend/src/batch/orchestrator.go
package batch

import (
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/username/assetfolio/backend/src/ingest"
	"github.com/username/assetfolio/backend/src/logger"
)

// ErrRunInProgress is returned when a batch run is triggered while the
// previous one is still active. The trigger is skipped, not queued.
var ErrRunInProgress = errors.New("batch run already in progress")

// CSVPaths names the three daily extract files, in processing order.
type CSVPaths struct {
	AssetGroup    string
	AssetPosition string
	Principal     string
}

// Orchestrator runs the three ingestion stages and the aggregation
// engine in fixed order. The registrar must precede the mapper (ISIN
// resolution) and the mapper must precede the backfill (account
// resolution).
type Orchestrator struct {
	assetGroups   *ingest.AssetGroupIngestor
	positions     *ingest.AssetPositionIngestor
	principals    *ingest.PrincipalIngestor
	aggregator    *Aggregator
	paths         CSVPaths
	onBatchFinish func()

	running atomic.Bool
}

// NewOrchestrator wires the batch pipeline. onBatchFinish is invoked
// after every successful run (e.g. to drop read-side caches); pass nil
// when nothing needs to happen.
func NewOrchestrator(db *sql.DB, paths CSVPaths, onBatchFinish func()) *Orchestrator {
	return &Orchestrator{
		assetGroups:   ingest.NewAssetGroupIngestor(db),
		positions:     ingest.NewAssetPositionIngestor(db),
		principals:    ingest.NewPrincipalIngestor(db),
		aggregator:    NewAggregator(db),
		paths:         paths,
		onBatchFinish: onBatchFinish,
	}
}

// Run executes one full batch: registrar, mapper, backfill,
// aggregation. A stage-fatal error (unreadable file, failed
// aggregation transaction) aborts the run; row-level failures do not.
// At most one run is active at a time.
func (o *Orchestrator) Run() error {
	if !o.running.CompareAndSwap(false, true) {
		logger.L.Warn("Batch run skipped, previous run still active")
		return ErrRunInProgress
	}
	defer o.running.Store(false)

	start := time.Now()
	logger.L.Info("Batch run starting")

	groupResult, err := o.assetGroups.IngestFile(o.paths.AssetGroup)
	if err != nil {
		logger.L.Error("Asset group stage failed", "path", o.paths.AssetGroup, "error", err)
		return err
	}
	logStage("asset_group", groupResult)

	positionResult, err := o.positions.IngestFile(o.paths.AssetPosition)
	if err != nil {
		logger.L.Error("Asset position stage failed", "path", o.paths.AssetPosition, "error", err)
		return err
	}
	logStage("asset_position", positionResult)

	principalResult, err := o.principals.IngestFile(o.paths.Principal)
	if err != nil {
		logger.L.Error("Principal stage failed", "path", o.paths.Principal, "error", err)
		return err
	}
	logStage("principal", principalResult)

	if err := o.aggregator.Recalculate(); err != nil {
		logger.L.Error("Aggregation failed, balances untouched", "error", err)
		return err
	}

	if o.onBatchFinish != nil {
		o.onBatchFinish()
	}
	logger.L.Info("Batch run finished", "duration", time.Since(start))
	return nil
}

func logStage(stage string, result *ingest.Result) {
	logger.L.Info("Ingestion stage complete", "stage", stage,
		"total", result.TotalRows, "success", result.SuccessRows, "failed", result.FailedRows)
	for _, rowErr := range result.InvalidRows {
		logger.L.Warn("Invalid row", "stage", stage, "row", rowErr.Row, "detail", rowErr.Detail)
	}
}
