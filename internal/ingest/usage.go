package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/peekbilling/importer/internal/clock"
	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/ratecard"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/zap"
)

// tableWriteWorkers bounds concurrent per-record table writes after the
// blob snapshot is stored.
const tableWriteWorkers = 16

// UsageIngestor retrieves, prices, and persists usage records for one
// subscription. The provider-specific part is the utilization source; the
// accumulation, billing, and write path are shared.
type UsageIngestor struct {
	providerName record.Provider
	source       provider.UtilizationSource
	calculator   *ratecard.Calculator
	tables       storage.Tables
	blobs        storage.Blobs
	telemetry    telemetry.Sink
	clock        clock.Clock
	log          *zap.Logger
	windowDays   int
}

// NewUsageIngestor wires a usage ingestion unit for one provider.
func NewUsageIngestor(
	providerName record.Provider,
	source provider.UtilizationSource,
	calculator *ratecard.Calculator,
	tables storage.Tables,
	blobs storage.Blobs,
	sink telemetry.Sink,
	clk clock.Clock,
	log *zap.Logger,
	windowDays int,
) *UsageIngestor {
	return &UsageIngestor{
		providerName: providerName,
		source:       source,
		calculator:   calculator,
		tables:       tables,
		blobs:        blobs,
		telemetry:    sink,
		clock:        clk,
		log:          log.Named("ingest.usage." + string(providerName)),
		windowDays:   windowDays,
	}
}

// Process retrieves the trailing usage window for the subscription,
// accumulating every page before any write. If records were produced, one
// JSON blob snapshot is written first, then each record is written to the
// usage table with per-record failure isolation.
func (u *UsageIngestor) Process(ctx context.Context, sub record.Subscription) (Outcome, error) {
	started := u.clock.Now()

	if skip(sub, record.BillingTypeUsage) {
		return OutcomeSkipped, nil
	}

	usage, err := u.collect(ctx, sub)
	if err != nil {
		return OutcomeRecoverable, fmt.Errorf("collect usage for subscription %s: %w", sub.SubscriptionID, err)
	}

	u.telemetry.ReportEvent(ctx, "usage.process", map[string]string{
		"CustomerId":     sub.CustomerID,
		"SubscriptionId": sub.SubscriptionID,
		"Provider":       string(sub.Provider),
	}, map[string]float64{
		"ElapsedMilliseconds":  float64(u.clock.Now().Sub(started).Milliseconds()),
		"NumberOfUsageRecords": float64(len(usage)),
	})

	if len(usage) == 0 {
		return OutcomeProcessed, nil
	}

	// The blob snapshot is the synchronization point: it is stored before
	// any table row so a partial table write can always be reconciled
	// against the full snapshot.
	name := fmt.Sprintf("%s-%s.json", sub.SubscriptionID, u.clock.Now().Format(blobTimestampFormat))
	if err := u.blobs.Put(ctx, storage.UsageContainerName, name, usage); err != nil {
		return OutcomeRecoverable, fmt.Errorf("write usage snapshot for subscription %s: %w", sub.SubscriptionID, err)
	}

	u.writeRows(ctx, usage)
	return OutcomeProcessed, nil
}

func (u *UsageIngestor) collect(ctx context.Context, sub record.Subscription) ([]record.Usage, error) {
	now := u.clock.Now()
	start := now.AddDate(0, 0, -u.windowDays)

	var usage []record.Usage
	page, err := u.source.Query(ctx, sub.CustomerID, sub.SubscriptionID, start, now)
	if err != nil {
		return nil, err
	}

	for page != nil {
		for _, raw := range page.Records {
			usage = append(usage, u.normalize(ctx, sub, raw))
		}
		if page.Continuation == "" {
			break
		}
		if page, err = u.source.Next(ctx, page.Continuation); err != nil {
			return nil, err
		}
	}
	return usage, nil
}

func (u *UsageIngestor) normalize(ctx context.Context, sub record.Subscription, raw provider.UtilizationRecord) record.Usage {
	tags, _ := json.Marshal(raw.Tags)

	row := record.Usage{
		ResourceID:     raw.ResourceID,
		Name:           raw.ResourceName,
		Category:       raw.Category,
		Subcategory:    raw.Subcategory,
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.SubscriptionID,
		Quantity:       raw.Quantity,
		Unit:           raw.Unit,
		UsageStartTime: raw.UsageStartTime,
		UsageEndTime:   raw.UsageEndTime,
		Location:       raw.InstanceLocation,
		ResourceURI:    raw.ResourceURI,
		Tags:           string(tags),
		Total:          u.calculator.Total(ctx, raw.ResourceID, raw.Quantity),
		UniqueID:       uuid.NewString(),
	}
	row.SetKeys()
	return row
}

// writeRows stores each record as an independent table row. Failures are
// reported and do not abort sibling writes; there is no rollback of rows
// already written or of the blob snapshot.
func (u *UsageIngestor) writeRows(ctx context.Context, usage []record.Usage) {
	sem := make(chan struct{}, tableWriteWorkers)
	var wg sync.WaitGroup

	for i := range usage {
		wg.Add(1)
		sem <- struct{}{}
		go func(row record.Usage) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := u.tables.Upsert(ctx, &row); err != nil {
				u.telemetry.ReportException(ctx, err, map[string]string{
					"component":      "ingest.usage",
					"CustomerId":     row.CustomerID,
					"SubscriptionId": row.SubscriptionID,
					"UniqueId":       row.UniqueID,
				})
			}
		}(usage[i])
	}
	wg.Wait()
}
