package oracle

import (
	"errors"
	"fmt"
	"time"
)

// DefaultStaleTimeout is the freshness window applied when none is supplied.
// Operations halt rather than run on possibly-wrong data once a reading ages
// past this window.
const DefaultStaleTimeout = 3 * time.Hour

var (
	// ErrStalePrice indicates the latest reading aged past the guard timeout
	// or carries a zero update timestamp.
	ErrStalePrice = errors.New("oracle: stale price reading")
	// ErrInvalidPrice indicates the feed returned a missing or non-positive price.
	ErrInvalidPrice = errors.New("oracle: invalid price reading")
)

// Guard wraps a raw price feed and rejects stale or invalid readings. There is
// no retry or fallback feed: a failed read halts every dependent operation.
type Guard struct {
	feed    PriceFeed
	timeout time.Duration
	now     func() time.Time
}

// NewGuard wraps the feed with the supplied freshness window. A non-positive
// timeout falls back to DefaultStaleTimeout.
func NewGuard(feed PriceFeed, timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultStaleTimeout
	}
	return &Guard{feed: feed, timeout: timeout, now: time.Now}
}

// SetClock overrides the clock used for staleness checks. Intended for tests.
func (g *Guard) SetClock(now func() time.Time) {
	if g == nil || now == nil {
		return
	}
	g.now = now
}

// Timeout returns the configured freshness window.
func (g *Guard) Timeout() time.Duration {
	if g == nil {
		return 0
	}
	return g.timeout
}

// Feed returns the wrapped price source.
func (g *Guard) Feed() PriceFeed {
	if g == nil {
		return nil
	}
	return g.feed
}

// Read fetches the latest reading and enforces the staleness window. A reading
// exactly at the timeout boundary is still valid; one older fails with
// ErrStalePrice, as does any reading with a zero update timestamp.
func (g *Guard) Read() (Reading, error) {
	if g == nil || g.feed == nil {
		return Reading{}, fmt.Errorf("oracle: guard not configured")
	}
	reading, err := g.feed.LatestRound()
	if err != nil {
		return Reading{}, err
	}
	if reading.Price == nil || reading.Price.Sign() <= 0 {
		return Reading{}, ErrInvalidPrice
	}
	if reading.UpdatedAt.IsZero() {
		return Reading{}, ErrStalePrice
	}
	if g.now().Sub(reading.UpdatedAt) > g.timeout {
		return Reading{}, ErrStalePrice
	}
	return reading.Clone(), nil
}
