package observability

import (
	"log/slog"

	"stablecore/core/events"
	coretypes "stablecore/core/types"
	"stablecore/observability/metrics"
)

// Emitter bridges engine events into structured logs and Prometheus
// counters. It satisfies the engine's event sink interface.
type Emitter struct {
	logger  *slog.Logger
	metrics *metrics.CollateralMetrics
}

// NewEmitter builds the bridge. A nil logger falls back to slog.Default.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger, metrics: metrics.Collateral()}
}

// Emit logs the event with its attribute map and updates counters for the
// event types that have one.
func (e *Emitter) Emit(event events.Event) {
	if e == nil || event == nil {
		return
	}

	switch evt := event.(type) {
	case events.CollateralDeposited:
		e.metrics.ObserveDeposit(evt.Asset)
	case events.CollateralRedeemed:
		e.metrics.ObserveRedemption(evt.Asset)
	case events.StableMinted:
		e.metrics.ObserveMint()
	case events.StableBurned:
		e.metrics.ObserveBurn()
	case events.PositionLiquidated:
		e.metrics.ObserveLiquidation()
	}

	attrs := []any{slog.String("event", event.EventType())}
	if rendered, ok := event.(interface{ Event() *coretypes.Event }); ok {
		if detail := rendered.Event(); detail != nil {
			for key, value := range detail.Attributes {
				attrs = append(attrs, slog.String(key, value))
			}
		}
	}
	e.logger.Info("engine event", attrs...)
}
