package ingest

import (
	"github.com/peekbilling/importer/internal/clock"
	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/provider/direct"
	"github.com/peekbilling/importer/internal/provider/graph"
	"github.com/peekbilling/importer/internal/provider/partnercenter"
	"github.com/peekbilling/importer/internal/ratecard"
	"github.com/peekbilling/importer/internal/record"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the provider clients, ingestors, and router.
var Module = fx.Module("ingest",
	fx.Provide(partnercenter.NewClient),
	fx.Provide(direct.NewClient),
	fx.Provide(graph.NewClient),
	fx.Provide(NewCalculator),
	fx.Provide(ProvideRouter),
)

// NewCalculator builds the billing calculator over the Partner Center
// rate card source.
func NewCalculator(pc *partnercenter.Client, sink telemetry.Sink, log *zap.Logger) *ratecard.Calculator {
	return ratecard.NewCalculator(pc, sink, log)
}

// ProvideRouter constructs the ingestors and the routing table for every
// configured provider.
func ProvideRouter(
	cfg config.Config,
	pc *partnercenter.Client,
	dc *direct.Client,
	gc *graph.Client,
	calculator *ratecard.Calculator,
	tables storage.Tables,
	blobs storage.Blobs,
	sink telemetry.Sink,
	metrics *telemetry.Metrics,
	clk clock.Clock,
	log *zap.Logger,
) (*Router, error) {
	var configured []record.Provider
	usage := make(map[record.Provider]Ingestor)

	if cfg.PartnerCenter.Configured() {
		configured = append(configured, record.ProviderPartnerCenter)
		usage[record.ProviderPartnerCenter] = NewUsageIngestor(
			record.ProviderPartnerCenter, pc, calculator, tables, blobs, sink, clk, log, cfg.UsageWindowDays)
	}
	if cfg.Direct.Configured() {
		configured = append(configured, record.ProviderDirect)
		usage[record.ProviderDirect] = NewUsageIngestor(
			record.ProviderDirect, dc, calculator, tables, blobs, sink, clk, log, cfg.UsageWindowDays)
	}

	license := NewLicenseIngestor(gc, tables, blobs, sink, clk, log)
	return NewRouter(license, usage, configured, metrics)
}
