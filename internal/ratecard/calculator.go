package ratecard

import (
	"context"
	"fmt"
	"sync"

	"github.com/peekbilling/importer/internal/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Source fetches the rate card from the upstream provider.
type Source interface {
	RateCard(ctx context.Context) (*Card, error)
}

// Calculator prices a metered quantity against the cached rate card.
//
// The card is fetched once and held for the process lifetime; there is no
// mid-run refresh. Operators pick up repriced cards by restarting the
// worker.
type Calculator struct {
	source    Source
	telemetry telemetry.Sink
	log       *zap.Logger

	mu   sync.Mutex
	card *Card
}

// NewCalculator builds a calculator over the given rate card source.
func NewCalculator(source Source, sink telemetry.Sink, log *zap.Logger) *Calculator {
	return &Calculator{
		source:    source,
		telemetry: sink,
		log:       log.Named("ratecard"),
	}
}

// Total computes the billable amount for the consumed quantity of the
// given resource. Unknown meters are a skip-billing policy, not an error:
// the failure is reported once and zero is returned. The result is never
// negative.
func (c *Calculator) Total(ctx context.Context, resourceID string, quantity decimal.Decimal) decimal.Decimal {
	card, err := c.load(ctx)
	if err != nil {
		c.telemetry.ReportException(ctx, fmt.Errorf("load rate card: %w", err), map[string]string{
			"component":  "ratecard",
			"ResourceId": resourceID,
		})
		return decimal.Zero
	}

	meter, ok := card.Lookup(resourceID)
	if !ok {
		c.telemetry.ReportException(ctx, fmt.Errorf("no meter matches resource %q", resourceID), map[string]string{
			"component":  "ratecard",
			"ResourceId": resourceID,
		})
		return decimal.Zero
	}

	billable := quantity.Sub(meter.IncludedQuantity)
	if billable.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	rate := decimal.Zero
	for _, tier := range meter.Tiers {
		if tier.Break.LessThanOrEqual(billable) {
			rate = tier.Rate
		}
	}

	return billable.Mul(rate)
}

func (c *Calculator) load(ctx context.Context) (*Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.card != nil {
		return c.card, nil
	}

	card, err := c.source.RateCard(ctx)
	if err != nil {
		return nil, err
	}
	card.Index()
	c.card = card
	c.log.Info("rate card cached", zap.Int("meters", len(card.Meters)))
	return c.card, nil
}
