// Package ratecard holds the reference pricing structure and the tiered
// billing calculator.
package ratecard

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is one (quantity break, unit rate) pair. The applicable rate for a
// billable quantity is the tier with the greatest break not exceeding that
// quantity; ties resolve to the last declared tier.
type Tier struct {
	Break decimal.Decimal `json:"break"`
	Rate  decimal.Decimal `json:"rate"`
}

// Meter maps a billable resource to its included quantity and overage
// tiers.
type Meter struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Subcategory      string          `json:"subcategory"`
	Unit             string          `json:"unit"`
	IncludedQuantity decimal.Decimal `json:"includedQuantity"`
	Tiers            []Tier          `json:"tiers"`
}

// Card is the full rate card fetched from the provider.
type Card struct {
	Currency string  `json:"currency"`
	Meters   []Meter `json:"meters"`

	byID map[string]*Meter
}

// Index prepares the card for lookup: meters become addressable by
// lowercased id and tiers are stably sorted ascending by break, so the
// last matching tier wins on equal breaks.
func (c *Card) Index() {
	c.byID = make(map[string]*Meter, len(c.Meters))
	for i := range c.Meters {
		meter := &c.Meters[i]
		sort.SliceStable(meter.Tiers, func(a, b int) bool {
			return meter.Tiers[a].Break.LessThan(meter.Tiers[b].Break)
		})
		c.byID[strings.ToLower(meter.ID)] = meter
	}
}

// Lookup resolves a meter by resource id, case-insensitively.
func (c *Card) Lookup(resourceID string) (*Meter, bool) {
	if c.byID == nil {
		c.Index()
	}
	meter, ok := c.byID[strings.ToLower(resourceID)]
	return meter, ok
}
