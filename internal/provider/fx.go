package provider

import (
	"go.uber.org/fx"
)

// Module provides the shared token source for provider clients.
var Module = fx.Module("provider",
	fx.Provide(NewTokenManager),
)
