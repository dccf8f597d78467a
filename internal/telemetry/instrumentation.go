package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// RegisterInstrumentation serves the Prometheus scrape endpoint.
func RegisterInstrumentation(lc fx.Lifecycle) {
	http.Handle("/metrics", promhttp.Handler())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				http.ListenAndServe(":2112", nil)
			}()
			return nil
		},
	})
}
