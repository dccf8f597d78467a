package main

import (
	"github.com/peekbilling/importer/internal/clock"
	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/consumer"
	"github.com/peekbilling/importer/internal/enumerate"
	"github.com/peekbilling/importer/internal/ingest"
	"github.com/peekbilling/importer/internal/provider"
	"github.com/peekbilling/importer/internal/scheduler"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"github.com/peekbilling/importer/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		telemetry.Module,
		clock.Module,
		storage.Module,
		provider.Module,

		// Pipeline
		enumerate.Module,
		ingest.Module,
		scheduler.Module,
		consumer.Module,
	)
	app.Run()
}
