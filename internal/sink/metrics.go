package sink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ammCore/internal/amm"
)

// Metrics holds the pool event counters. One Metrics serves any number of
// pools through the pool label.
type Metrics struct {
	SwapsTotal      *prometheus.CounterVec
	SwapVolumeIn    *prometheus.CounterVec
	SwapVolumeOut   *prometheus.CounterVec
	LiquidityEvents *prometheus.CounterVec
	SharesMinted    *prometheus.CounterVec
	SharesBurned    *prometheus.CounterVec
}

// NewMetrics registers the counters with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SwapsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swaps_total",
				Help:      "Total number of swaps executed",
			},
			[]string{"pool", "direction"},
		),
		SwapVolumeIn: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swap_volume_in_total",
				Help:      "Total swap input in base units, fee included",
			},
			[]string{"pool", "direction"},
		),
		SwapVolumeOut: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "swap_volume_out_total",
				Help:      "Total swap output in base units",
			},
			[]string{"pool", "direction"},
		),
		LiquidityEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "liquidity_events_total",
				Help:      "Total number of bootstrap, add and remove operations",
			},
			[]string{"pool", "action"},
		),
		SharesMinted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "lp_minted_total",
				Help:      "Total LP shares minted",
			},
			[]string{"pool"},
		),
		SharesBurned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "amm",
				Subsystem: "pool",
				Name:      "lp_burned_total",
				Help:      "Total LP shares burned",
			},
			[]string{"pool"},
		),
	}
}

// MetricsSink updates Metrics for one pool.
type MetricsSink struct {
	metrics *Metrics
	pool    string
}

func NewMetricsSink(metrics *Metrics, pool string) *MetricsSink {
	return &MetricsSink{metrics: metrics, pool: pool}
}

func (s *MetricsSink) Emit(ev amm.Event) {
	switch e := ev.(type) {
	case amm.SwapEvent:
		dir := string(e.Direction)
		s.metrics.SwapsTotal.WithLabelValues(s.pool, dir).Inc()
		s.metrics.SwapVolumeIn.WithLabelValues(s.pool, dir).Add(float64(e.AmountIn))
		s.metrics.SwapVolumeOut.WithLabelValues(s.pool, dir).Add(float64(e.AmountOut))
	case amm.LiquidityEvent:
		s.metrics.LiquidityEvents.WithLabelValues(s.pool, string(e.Action)).Inc()
		if e.Action == amm.ActionRemove {
			s.metrics.SharesBurned.WithLabelValues(s.pool).Add(float64(e.Amount))
		} else {
			s.metrics.SharesMinted.WithLabelValues(s.pool).Add(float64(e.Amount))
		}
	}
}
