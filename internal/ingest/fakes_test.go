package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/ratecard"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type reportedException struct {
	err   error
	props map[string]string
}

type reportedEvent struct {
	name    string
	props   map[string]string
	metrics map[string]float64
}

type fakeSink struct {
	mu         sync.Mutex
	exceptions []reportedException
	events     []reportedEvent
}

func (f *fakeSink) ReportException(_ context.Context, err error, props map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exceptions = append(f.exceptions, reportedException{err: err, props: props})
}

func (f *fakeSink) ReportEvent(_ context.Context, name string, props map[string]string, metrics map[string]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, reportedEvent{name: name, props: props, metrics: metrics})
}

func (f *fakeSink) exceptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.exceptions)
}

// fakeTables keeps the stored entities keyed like the real table store and
// records write order against a shared sequence log.
type fakeTables struct {
	mu       sync.Mutex
	rows     map[string]storage.Entity
	failWhen func(storage.Entity) error
	seq      *sequenceLog
}

func newFakeTables() *fakeTables {
	return &fakeTables{rows: make(map[string]storage.Entity)}
}

func tableKey(entity storage.Entity) string {
	partition, row := entity.Keys()
	return fmt.Sprintf("%s|%s|%s", entity.TableName(), partition, row)
}

func (f *fakeTables) Upsert(_ context.Context, entity storage.Entity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq != nil {
		f.seq.append("table")
	}
	if f.failWhen != nil {
		if err := f.failWhen(entity); err != nil {
			return err
		}
	}
	f.rows[tableKey(entity)] = entity
	return nil
}

func (f *fakeTables) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeTables) usageRows() []record.Usage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []record.Usage
	for _, entity := range f.rows {
		if row, ok := entity.(*record.Usage); ok {
			out = append(out, *row)
		}
	}
	return out
}

func (f *fakeTables) licenseRows() []record.LicenseSku {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []record.LicenseSku
	for _, entity := range f.rows {
		if row, ok := entity.(*record.LicenseSku); ok {
			out = append(out, *row)
		}
	}
	return out
}

type storedBlob struct {
	container string
	name      string
	item      any
}

type fakeBlobs struct {
	mu    sync.Mutex
	blobs []storedBlob
	err   error
	seq   *sequenceLog
}

func (f *fakeBlobs) Put(_ context.Context, container, name string, item any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seq != nil {
		f.seq.append("blob")
	}
	if f.err != nil {
		return f.err
	}
	f.blobs = append(f.blobs, storedBlob{container: container, name: name, item: item})
	return nil
}

type sequenceLog struct {
	mu      sync.Mutex
	entries []string
}

func (s *sequenceLog) append(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, kind)
}

func (s *sequenceLog) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// fakeUtilization serves a fixed chain of pages. Query returns the first;
// Next resolves continuation tokens against the remainder.
type fakeUtilization struct {
	pages    []provider.UtilizationPage
	queryErr error
	nextErr  error
	queries  int
}

func (f *fakeUtilization) Query(_ context.Context, _, _ string, _, _ time.Time) (*provider.UtilizationPage, error) {
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.pages) == 0 {
		return &provider.UtilizationPage{}, nil
	}
	page := f.pages[0]
	return &page, nil
}

func (f *fakeUtilization) Next(_ context.Context, continuation string) (*provider.UtilizationPage, error) {
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	for i := range f.pages {
		if f.pages[i].Continuation == continuation && i+1 < len(f.pages) {
			page := f.pages[i+1]
			return &page, nil
		}
	}
	return nil, errors.New("unknown continuation " + continuation)
}

type fakeSkuSource struct {
	skus []provider.SubscribedSku
	err  error
}

func (f *fakeSkuSource) SubscribedSkus(context.Context, string) ([]provider.SubscribedSku, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.skus, nil
}

type cardSource struct {
	card *ratecard.Card
}

func (c cardSource) RateCard(context.Context) (*ratecard.Card, error) {
	return c.card, nil
}

func testCalculator(sink *fakeSink) *ratecard.Calculator {
	card := &ratecard.Card{
		Currency: "USD",
		Meters: []ratecard.Meter{{
			ID:               "M1",
			IncludedQuantity: dec("100"),
			Tiers:            []ratecard.Tier{{Break: dec("0"), Rate: dec("0.10")}},
		}},
	}
	return ratecard.NewCalculator(cardSource{card: card}, sink, zap.NewNop())
}

// fakeIngestor records routed subscriptions for router tests.
type fakeIngestor struct {
	outcome Outcome
	err     error
	seen    []record.Subscription
}

func (f *fakeIngestor) Process(_ context.Context, sub record.Subscription) (Outcome, error) {
	f.seen = append(f.seen, sub)
	return f.outcome, f.err
}
