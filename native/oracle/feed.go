package oracle

import (
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// FeedDecimals is the fractional precision reported by price feeds. Every feed
// adapter must normalise its output to this precision before returning.
const FeedDecimals = 8

// Reading captures a single price observation for an asset. Price carries
// FeedDecimals fractional digits. Readings are fetched on demand and never
// persisted.
type Reading struct {
	Price     *big.Int
	UpdatedAt time.Time
	RoundID   uint64
}

// Clone returns a deep copy of the reading to prevent accidental mutations.
func (r Reading) Clone() Reading {
	clone := Reading{UpdatedAt: r.UpdatedAt, RoundID: r.RoundID}
	if r.Price != nil {
		clone.Price = new(big.Int).Set(r.Price)
	}
	return clone
}

// PriceFeed resolves the latest USD price observation for a single asset.
type PriceFeed interface {
	LatestRound() (Reading, error)
}

// ManualFeed provides an in-memory feed implementation used for tests and
// manual overrides during incident response.
type ManualFeed struct {
	mu      sync.RWMutex
	reading Reading
	set     bool
}

// NewManualFeed constructs an empty manual feed instance.
func NewManualFeed() *ManualFeed {
	return &ManualFeed{}
}

// Set stores the provided price observation.
func (m *ManualFeed) Set(price *big.Int, updatedAt time.Time, roundID uint64) {
	if m == nil || price == nil {
		return
	}
	m.mu.Lock()
	m.reading = Reading{Price: new(big.Int).Set(price), UpdatedAt: updatedAt, RoundID: roundID}
	m.set = true
	m.mu.Unlock()
}

// SetDecimal records the supplied decimal USD price using the provided
// timestamp. The value is scaled to FeedDecimals fractional digits.
func (m *ManualFeed) SetDecimal(price string, updatedAt time.Time, roundID uint64) error {
	if m == nil {
		return fmt.Errorf("manual feed not configured")
	}
	trimmed := strings.TrimSpace(price)
	if trimmed == "" {
		return fmt.Errorf("manual feed: price required")
	}
	rat, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return fmt.Errorf("manual feed: invalid price %q", price)
	}
	if rat.Sign() <= 0 {
		return fmt.Errorf("manual feed: price must be positive")
	}
	scaled := ratToFeedUnits(rat)
	m.Set(scaled, updatedAt, roundID)
	return nil
}

// LatestRound retrieves the stored observation.
func (m *ManualFeed) LatestRound() (Reading, error) {
	if m == nil {
		return Reading{}, fmt.Errorf("manual feed not configured")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return Reading{}, fmt.Errorf("manual feed: no observation recorded")
	}
	return m.reading.Clone(), nil
}

func ratToFeedUnits(rat *big.Rat) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(FeedDecimals), nil)
	scaled := new(big.Rat).Mul(rat, new(big.Rat).SetInt(scale))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom())
}
