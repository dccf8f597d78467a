package enumerate

import (
	"github.com/peekbilling/importer/internal/config"
	"github.com/peekbilling/importer/internal/provider/partnercenter"
	"github.com/peekbilling/importer/internal/storage"
	"github.com/peekbilling/importer/internal/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the per-provider enumerators and the dispatcher.
var Module = fx.Module("enumerate",
	fx.Provide(NewDispatcher),
	fx.Provide(ProvideEnumerators),
)

// ProvideEnumerators registers an enumerator for every provider whose
// credentials are configured.
func ProvideEnumerators(cfg config.Config, pc *partnercenter.Client, tables storage.Tables, sink telemetry.Sink, log *zap.Logger) []Enumerator {
	var enumerators []Enumerator
	if cfg.Direct.Configured() {
		enumerators = append(enumerators, NewDirectEnumerator())
	}
	if cfg.PartnerCenter.Configured() {
		enumerators = append(enumerators, NewPartnerCenterEnumerator(pc, tables, sink, log))
	}
	return enumerators
}
