package ratecard

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSource struct {
	card  *Card
	err   error
	calls int
}

func (s *staticSource) RateCard(context.Context) (*Card, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.card, nil
}

type recordingSink struct {
	exceptions []error
	events     []string
}

func (r *recordingSink) ReportException(_ context.Context, err error, _ map[string]string) {
	r.exceptions = append(r.exceptions, err)
}

func (r *recordingSink) ReportEvent(_ context.Context, name string, _ map[string]string, _ map[string]float64) {
	r.events = append(r.events, name)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCard() *Card {
	return &Card{
		Currency: "USD",
		Meters: []Meter{
			{
				ID:               "M1",
				IncludedQuantity: dec("100"),
				Tiers: []Tier{
					{Break: dec("0"), Rate: dec("0.10")},
					{Break: dec("50"), Rate: dec("0.08")},
					{Break: dec("200"), Rate: dec("0.05")},
				},
			},
			{
				ID:               "FLAT",
				IncludedQuantity: dec("0"),
				Tiers:            []Tier{{Break: dec("0"), Rate: dec("1.5")}},
			},
		},
	}
}

func newCalculator(t *testing.T, card *Card) (*Calculator, *staticSource, *recordingSink) {
	t.Helper()
	source := &staticSource{card: card}
	sink := &recordingSink{}
	return NewCalculator(source, sink, zap.NewNop()), source, sink
}

func TestTotalZeroWithinIncludedQuantity(t *testing.T) {
	calc, _, sink := newCalculator(t, testCard())

	for _, quantity := range []string{"0", "50", "100"} {
		total := calc.Total(context.Background(), "M1", dec(quantity))
		assert.True(t, total.IsZero(), "quantity %s should not be billable", quantity)
	}
	assert.Empty(t, sink.exceptions)
}

func TestTotalAppliesHighestMatchingTier(t *testing.T) {
	calc, _, _ := newCalculator(t, testCard())

	// billable = 120 - 100 = 20, tier break 0 applies.
	total := calc.Total(context.Background(), "M1", dec("120"))
	assert.True(t, dec("2.0").Equal(total), "got %s", total)

	// billable = 60, tier break 50 applies.
	total = calc.Total(context.Background(), "M1", dec("160"))
	assert.True(t, dec("4.8").Equal(total), "got %s", total)

	// billable = 300, tier break 200 applies.
	total = calc.Total(context.Background(), "M1", dec("400"))
	assert.True(t, dec("15").Equal(total), "got %s", total)
}

func TestTotalTierBoundaryIsInclusive(t *testing.T) {
	calc, _, _ := newCalculator(t, testCard())

	// billable exactly 50 selects the 50 break.
	total := calc.Total(context.Background(), "M1", dec("150"))
	assert.True(t, dec("4.0").Equal(total), "got %s", total)
}

func TestTotalTieResolvesToLastDeclaredTier(t *testing.T) {
	card := &Card{
		Meters: []Meter{{
			ID:               "M1",
			IncludedQuantity: dec("0"),
			Tiers: []Tier{
				{Break: dec("10"), Rate: dec("0.20")},
				{Break: dec("10"), Rate: dec("0.30")},
			},
		}},
	}
	calc, _, _ := newCalculator(t, card)

	total := calc.Total(context.Background(), "M1", dec("20"))
	assert.True(t, dec("6").Equal(total), "ties must resolve to the last declared tier, got %s", total)
}

func TestTotalMeterLookupIsCaseInsensitive(t *testing.T) {
	calc, _, sink := newCalculator(t, testCard())

	total := calc.Total(context.Background(), "flat", dec("2"))
	assert.True(t, dec("3").Equal(total), "got %s", total)
	assert.Empty(t, sink.exceptions)
}

func TestTotalUnknownMeterReturnsZeroAndReportsOnce(t *testing.T) {
	calc, _, sink := newCalculator(t, testCard())

	total := calc.Total(context.Background(), "unknown", dec("500"))
	assert.True(t, total.IsZero())
	require.Len(t, sink.exceptions, 1)
}

func TestRateCardFetchedOncePerProcess(t *testing.T) {
	calc, source, _ := newCalculator(t, testCard())

	for i := 0; i < 5; i++ {
		calc.Total(context.Background(), "M1", dec("120"))
	}
	assert.Equal(t, 1, source.calls)
}

func TestTotalReportsWhenCardUnavailable(t *testing.T) {
	source := &staticSource{err: errors.New("upstream down")}
	sink := &recordingSink{}
	calc := NewCalculator(source, sink, zap.NewNop())

	total := calc.Total(context.Background(), "M1", dec("120"))
	assert.True(t, total.IsZero())
	require.Len(t, sink.exceptions, 1)
}
