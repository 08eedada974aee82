package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CollateralMetrics tracks engine activity: operation outcomes, custody
// flows by asset, and liquidation volume.
type CollateralMetrics struct {
	deposits     *prometheus.CounterVec
	redemptions  *prometheus.CounterVec
	liquidations prometheus.Counter
	debtMinted   prometheus.Counter
	debtBurned   prometheus.Counter
	oracleStale  prometheus.Counter
}

var (
	collateralOnce     sync.Once
	collateralRegistry *CollateralMetrics
)

// Collateral returns the lazily-initialised engine metrics registry.
func Collateral() *CollateralMetrics {
	collateralOnce.Do(func() {
		collateralRegistry = &CollateralMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "deposits_total",
				Help:      "Count of collateral deposits by asset.",
			}, []string{"asset"}),
			redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "redemptions_total",
				Help:      "Count of collateral redemptions by asset.",
			}, []string{"asset"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "liquidations_total",
				Help:      "Count of completed liquidations.",
			}),
			debtMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "debt_mint_events_total",
				Help:      "Count of successful stablecoin mints.",
			}),
			debtBurned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "engine",
				Name:      "debt_burn_events_total",
				Help:      "Count of successful stablecoin burns.",
			}),
			oracleStale: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stable",
				Subsystem: "oracle",
				Name:      "stale_rejections_total",
				Help:      "Count of operations rejected because a feed was stale or invalid.",
			}),
		}
		prometheus.MustRegister(
			collateralRegistry.deposits,
			collateralRegistry.redemptions,
			collateralRegistry.liquidations,
			collateralRegistry.debtMinted,
			collateralRegistry.debtBurned,
			collateralRegistry.oracleStale,
		)
	})
	return collateralRegistry
}

// ObserveDeposit counts a completed deposit for the asset.
func (m *CollateralMetrics) ObserveDeposit(asset string) {
	if m == nil {
		return
	}
	m.deposits.WithLabelValues(normalize(asset)).Inc()
}

// ObserveRedemption counts a completed redemption for the asset.
func (m *CollateralMetrics) ObserveRedemption(asset string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(normalize(asset)).Inc()
}

// ObserveLiquidation counts a completed liquidation.
func (m *CollateralMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// ObserveMint counts a successful debt issuance.
func (m *CollateralMetrics) ObserveMint() {
	if m == nil {
		return
	}
	m.debtMinted.Inc()
}

// ObserveBurn counts a successful debt retirement.
func (m *CollateralMetrics) ObserveBurn() {
	if m == nil {
		return
	}
	m.debtBurned.Inc()
}

// ObserveStaleOracle counts an operation rejected on feed freshness.
func (m *CollateralMetrics) ObserveStaleOracle() {
	if m == nil {
		return
	}
	m.oracleStale.Inc()
}

func normalize(asset string) string {
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		return "UNKNOWN"
	}
	return normalized
}
