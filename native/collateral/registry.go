package collateral

import (
	"fmt"
	"strings"

	"stablecore/native/oracle"
)

// Registry holds the fixed, construction-time mapping of accepted collateral
// assets to their guarded price feeds. Lookups are O(1) via the map while the
// ordered slice preserves construction order for deterministic iteration when
// summing account collateral value. The two are populated together and never
// diverge; the registry is immutable after construction.
type Registry struct {
	guards map[string]*oracle.Guard
	order  []string
}

// NewRegistry builds a registry from parallel asset and guard slices.
func NewRegistry(assets []string, guards []*oracle.Guard) (*Registry, error) {
	if len(assets) != len(guards) {
		return nil, ErrLengthMismatch
	}
	registry := &Registry{
		guards: make(map[string]*oracle.Guard, len(assets)),
		order:  make([]string, 0, len(assets)),
	}
	for i, raw := range assets {
		symbol := NormalizeAsset(raw)
		if symbol == "" {
			return nil, fmt.Errorf("collateral engine: empty asset symbol at index %d", i)
		}
		if guards[i] == nil {
			return nil, fmt.Errorf("collateral engine: nil price feed for asset %s", symbol)
		}
		if _, exists := registry.guards[symbol]; exists {
			return nil, fmt.Errorf("collateral engine: duplicate asset %s", symbol)
		}
		registry.guards[symbol] = guards[i]
		registry.order = append(registry.order, symbol)
	}
	return registry, nil
}

// NormalizeAsset canonicalises an asset symbol for registry lookups.
func NormalizeAsset(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// IsAccepted reports whether the asset has a registered price feed.
func (r *Registry) IsAccepted(symbol string) bool {
	if r == nil {
		return false
	}
	_, ok := r.guards[NormalizeAsset(symbol)]
	return ok
}

// Guard returns the price guard for the asset, failing with
// ErrUnsupportedAsset for anything outside the registry.
func (r *Registry) Guard(symbol string) (*oracle.Guard, error) {
	if r == nil {
		return nil, ErrUnsupportedAsset
	}
	guard, ok := r.guards[NormalizeAsset(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, NormalizeAsset(symbol))
	}
	return guard, nil
}

// Assets returns the accepted asset symbols in construction order.
func (r *Registry) Assets() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.order...)
}
