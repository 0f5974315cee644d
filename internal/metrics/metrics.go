// Package metrics provides Prometheus metrics for the frame service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ComposeTotal counts compositions by placement strategy and outcome.
	ComposeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frameapp",
			Name:      "compose_total",
			Help:      "Total number of compose requests",
		},
		[]string{"strategy", "result"},
	)

	// ComposeDuration measures time spent building a composite.
	ComposeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "frameapp",
			Name:      "compose_duration_seconds",
			Help:      "Duration of compose operations in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)

	// FontFallbackTotal counts captions drawn with the builtin font.
	FontFallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frameapp",
			Name:      "font_fallback_total",
			Help:      "Total number of captions rendered with the builtin fallback font",
		},
	)

	// AssetsReady tracks whether both frame assets are present.
	AssetsReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "frameapp",
			Name:      "assets_ready",
			Help:      "Frame asset status (1 = present, 0 = missing)",
		},
	)
)

// Compose results.
const (
	ResultOK        = "ok"
	ResultFrameOnly = "frame_only"
	ResultError     = "error"
)

// RecordCompose records a compose operation.
func RecordCompose(strategy, result string, elapsed time.Duration) {
	ComposeTotal.WithLabelValues(strategy, result).Inc()
	ComposeDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordFontFallback records a caption drawn with the fallback font.
func RecordFontFallback() {
	FontFallbackTotal.Inc()
}

// SetAssetsReady sets the asset gauge.
func SetAssetsReady(ready bool) {
	if ready {
		AssetsReady.Set(1)
		return
	}
	AssetsReady.Set(0)
}
