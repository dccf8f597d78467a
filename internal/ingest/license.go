package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/peekbilling/importer/internal/clock"
	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/zap"
)

// LicenseIngestor captures SKU consumption snapshots for license billed
// subscriptions. Rows are keyed by capture date and customer/sku, so a
// same-day rerun overwrites rather than duplicates.
type LicenseIngestor struct {
	source    provider.SkuSource
	tables    storage.Tables
	blobs     storage.Blobs
	telemetry telemetry.Sink
	clock     clock.Clock
	log       *zap.Logger
}

// NewLicenseIngestor wires the license ingestion unit.
func NewLicenseIngestor(source provider.SkuSource, tables storage.Tables, blobs storage.Blobs, sink telemetry.Sink, clk clock.Clock, log *zap.Logger) *LicenseIngestor {
	return &LicenseIngestor{
		source:    source,
		tables:    tables,
		blobs:     blobs,
		telemetry: sink,
		clock:     clk,
		log:       log.Named("ingest.license"),
	}
}

// Process fetches the customer's subscribed SKUs, derives the unit
// aggregates, writes one blob snapshot, and upserts each SKU row with
// per-row failure isolation.
func (l *LicenseIngestor) Process(ctx context.Context, sub record.Subscription) (Outcome, error) {
	if skip(sub, record.BillingTypeLicense) {
		return OutcomeSkipped, nil
	}

	skus, err := l.source.SubscribedSkus(ctx, sub.CustomerID)
	if err != nil {
		return OutcomeRecoverable, fmt.Errorf("fetch subscribed skus for customer %s: %w", sub.CustomerID, err)
	}

	now := l.clock.Now()
	rows := make([]record.LicenseSku, 0, len(skus))
	for _, sku := range skus {
		row := record.LicenseSku{
			CustomerID:       sub.CustomerID,
			SkuID:            sku.SkuID,
			SkuPartNumber:    sku.SkuPartNumber,
			CapabilityStatus: sku.CapabilityStatus,
			AppliesTo:        sku.AppliesTo,
			ActiveUnits:      sku.EnabledUnits,
			ConsumedUnits:    sku.ConsumedUnits,
			SuspendedUnits:   sku.SuspendedUnits,
			WarningUnits:     sku.WarningUnits,
			TotalUnits:       sku.EnabledUnits + sku.WarningUnits,
			AvailableUnits:   sku.EnabledUnits + sku.WarningUnits - sku.ConsumedUnits,
			CaptureDate:      now,
		}
		row.SetKeys()
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return OutcomeProcessed, nil
	}

	name := fmt.Sprintf("%s-%s.json", sub.SubscriptionID, now.Format(blobTimestampFormat))
	if err := l.blobs.Put(ctx, storage.LicenseContainerName, name, rows); err != nil {
		return OutcomeRecoverable, fmt.Errorf("write license snapshot for subscription %s: %w", sub.SubscriptionID, err)
	}

	l.writeRows(ctx, rows)
	return OutcomeProcessed, nil
}

func (l *LicenseIngestor) writeRows(ctx context.Context, rows []record.LicenseSku) {
	sem := make(chan struct{}, tableWriteWorkers)
	var wg sync.WaitGroup

	for i := range rows {
		wg.Add(1)
		sem <- struct{}{}
		go func(row record.LicenseSku) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := l.tables.Upsert(ctx, &row); err != nil {
				l.telemetry.ReportException(ctx, err, map[string]string{
					"component":  "ingest.license",
					"CustomerId": row.CustomerID,
					"SkuId":      row.SkuID,
				})
			}
		}(rows[i])
	}
	wg.Wait()
}
