package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peekbilling/importer/internal/clock"
	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func licenseSubscription() record.Subscription {
	return record.NewSubscription("C1", "S2", "Contoso Seats",
		record.BillingTypeLicense, record.ProviderPartnerCenter, record.StatusActive)
}

func newLicenseIngestor(source *fakeSkuSource, tables *fakeTables, blobs *fakeBlobs, sink *fakeSink) *LicenseIngestor {
	return NewLicenseIngestor(source, tables, blobs, sink, clock.NewFakeClock(captureTime), zap.NewNop())
}

func seatSkus() *fakeSkuSource {
	return &fakeSkuSource{skus: []provider.SubscribedSku{
		{
			SkuID:            "SKU-1",
			SkuPartNumber:    "ENTERPRISEPACK",
			CapabilityStatus: "Enabled",
			AppliesTo:        "User",
			EnabledUnits:     100,
			WarningUnits:     5,
			SuspendedUnits:   2,
			ConsumedUnits:    80,
		},
		{
			SkuID:         "SKU-2",
			SkuPartNumber: "POWER_BI_STANDARD",
			EnabledUnits:  10,
			ConsumedUnits: 10,
		},
	}}
}

func TestLicenseProcessDerivesUnitAggregates(t *testing.T) {
	tables := newFakeTables()
	blobs := &fakeBlobs{}
	ingestor := newLicenseIngestor(seatSkus(), tables, blobs, &fakeSink{})

	outcome, err := ingestor.Process(context.Background(), licenseSubscription())
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	rows := tables.licenseRows()
	require.Len(t, rows, 2)
	bySku := map[string]record.LicenseSku{}
	for _, row := range rows {
		bySku[row.SkuID] = row
	}

	first := bySku["SKU-1"]
	assert.Equal(t, int64(105), first.TotalUnits, "total is enabled plus warning")
	assert.Equal(t, int64(25), first.AvailableUnits, "available is total minus consumed")
	assert.Equal(t, int64(100), first.ActiveUnits)
	assert.Equal(t, int64(2), first.SuspendedUnits)
	assert.Equal(t, captureTime, first.CaptureDate)

	second := bySku["SKU-2"]
	assert.Equal(t, int64(10), second.TotalUnits)
	assert.Zero(t, second.AvailableUnits)
}

func TestLicenseProcessKeysRowsByCaptureDate(t *testing.T) {
	tables := newFakeTables()
	ingestor := newLicenseIngestor(seatSkus(), tables, &fakeBlobs{}, &fakeSink{})

	_, err := ingestor.Process(context.Background(), licenseSubscription())
	require.NoError(t, err)

	for _, row := range tables.licenseRows() {
		assert.Equal(t, "2026-03-15", row.PartitionKey)
		assert.Equal(t, "C1_"+row.SkuID, row.RowKey)
	}
}

func TestLicenseProcessSameDayRerunOverwrites(t *testing.T) {
	tables := newFakeTables()
	ingestor := newLicenseIngestor(seatSkus(), tables, &fakeBlobs{}, &fakeSink{})
	sub := licenseSubscription()

	for i := 0; i < 2; i++ {
		outcome, err := ingestor.Process(context.Background(), sub)
		require.NoError(t, err)
		assert.Equal(t, OutcomeProcessed, outcome)
	}

	// Same capture date, same customer/sku keys: the rerun replaces the
	// earlier rows instead of adding new ones.
	assert.Equal(t, 2, tables.count())
}

func TestLicenseProcessNextDayCapturesNewPartition(t *testing.T) {
	tables := newFakeTables()
	clk := clock.NewFakeClock(captureTime)
	ingestor := NewLicenseIngestor(seatSkus(), tables, &fakeBlobs{}, &fakeSink{}, clk, zap.NewNop())
	sub := licenseSubscription()

	_, err := ingestor.Process(context.Background(), sub)
	require.NoError(t, err)
	clk.Advance(24 * time.Hour)
	_, err = ingestor.Process(context.Background(), sub)
	require.NoError(t, err)

	assert.Equal(t, 4, tables.count())
}

func TestLicenseProcessSkipPredicate(t *testing.T) {
	cases := []struct {
		name        string
		billingType record.BillingType
		status      record.Status
		skipped     bool
	}{
		{"wrong type and deleted", record.BillingTypeUsage, record.StatusDeleted, true},
		{"wrong type but active", record.BillingTypeUsage, record.StatusActive, false},
		{"right type and deleted", record.BillingTypeLicense, record.StatusDeleted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ingestor := newLicenseIngestor(seatSkus(), newFakeTables(), &fakeBlobs{}, &fakeSink{})
			sub := record.NewSubscription("C1", "S2", "", tc.billingType, record.ProviderPartnerCenter, tc.status)

			outcome, err := ingestor.Process(context.Background(), sub)
			require.NoError(t, err)
			if tc.skipped {
				assert.Equal(t, OutcomeSkipped, outcome)
			} else {
				assert.Equal(t, OutcomeProcessed, outcome)
			}
		})
	}
}

func TestLicenseProcessWritesSnapshotFirst(t *testing.T) {
	seq := &sequenceLog{}
	tables := newFakeTables()
	tables.seq = seq
	blobs := &fakeBlobs{seq: seq}
	ingestor := newLicenseIngestor(seatSkus(), tables, blobs, &fakeSink{})

	_, err := ingestor.Process(context.Background(), licenseSubscription())
	require.NoError(t, err)

	entries := seq.all()
	require.NotEmpty(t, entries)
	assert.Equal(t, "blob", entries[0])

	require.Len(t, blobs.blobs, 1)
	assert.Equal(t, storage.LicenseContainerName, blobs.blobs[0].container)
	assert.Equal(t, "S2-2026-03-15-10-30-00.json", blobs.blobs[0].name)
}

func TestLicenseProcessSourceFailureIsRecoverable(t *testing.T) {
	source := &fakeSkuSource{err: errors.New("graph unavailable")}
	ingestor := newLicenseIngestor(source, newFakeTables(), &fakeBlobs{}, &fakeSink{})

	outcome, err := ingestor.Process(context.Background(), licenseSubscription())
	require.Error(t, err)
	assert.Equal(t, OutcomeRecoverable, outcome)
}

func TestLicenseProcessNoSkus(t *testing.T) {
	blobs := &fakeBlobs{}
	ingestor := newLicenseIngestor(&fakeSkuSource{}, newFakeTables(), blobs, &fakeSink{})

	outcome, err := ingestor.Process(context.Background(), licenseSubscription())
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Empty(t, blobs.blobs)
}
