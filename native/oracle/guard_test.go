package oracle

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestGuardAcceptsFreshReading(t *testing.T) {
	feed := NewManualFeed()
	now := time.Unix(1_700_000_000, 0)
	feed.Set(big.NewInt(2000_00000000), now.Add(-time.Hour), 7)

	guard := NewGuard(feed, 3*time.Hour)
	guard.SetClock(func() time.Time { return now })

	reading, err := guard.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if reading.Price.Cmp(big.NewInt(2000_00000000)) != 0 {
		t.Fatalf("unexpected price: %s", reading.Price)
	}
	if reading.RoundID != 7 {
		t.Fatalf("unexpected round id: %d", reading.RoundID)
	}
}

func TestGuardStalenessBoundary(t *testing.T) {
	feed := NewManualFeed()
	now := time.Unix(1_700_000_000, 0)
	guard := NewGuard(feed, 3*time.Hour)
	guard.SetClock(func() time.Time { return now })

	// Exactly at the boundary is still valid.
	feed.Set(big.NewInt(1), now.Add(-3*time.Hour), 1)
	if _, err := guard.Read(); err != nil {
		t.Fatalf("boundary reading rejected: %v", err)
	}

	// One second past the boundary fails.
	feed.Set(big.NewInt(1), now.Add(-3*time.Hour).Add(-time.Second), 2)
	if _, err := guard.Read(); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice, got %v", err)
	}
}

func TestGuardRejectsZeroTimestamp(t *testing.T) {
	feed := NewManualFeed()
	feed.Set(big.NewInt(100), time.Time{}, 3)

	guard := NewGuard(feed, 3*time.Hour)
	if _, err := guard.Read(); !errors.Is(err, ErrStalePrice) {
		t.Fatalf("expected ErrStalePrice for zero timestamp, got %v", err)
	}
}

func TestGuardRejectsInvalidPrice(t *testing.T) {
	feed := NewManualFeed()
	feed.Set(big.NewInt(1), time.Now(), 4)
	feed.reading.Price = big.NewInt(0)

	guard := NewGuard(feed, 0)
	if _, err := guard.Read(); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if guard.Timeout() != DefaultStaleTimeout {
		t.Fatalf("expected default timeout, got %s", guard.Timeout())
	}
}

func TestManualFeedSetDecimal(t *testing.T) {
	feed := NewManualFeed()
	ts := time.Unix(1_700_000_000, 0)
	if err := feed.SetDecimal("2000.5", ts, 9); err != nil {
		t.Fatalf("set decimal: %v", err)
	}
	reading, err := feed.LatestRound()
	if err != nil {
		t.Fatalf("latest round: %v", err)
	}
	if reading.Price.Cmp(big.NewInt(2000_50000000)) != 0 {
		t.Fatalf("unexpected scaled price: %s", reading.Price)
	}

	if err := feed.SetDecimal("-1", ts, 10); err == nil {
		t.Fatalf("expected rejection of negative price")
	}
	if err := feed.SetDecimal("", ts, 11); err == nil {
		t.Fatalf("expected rejection of empty price")
	}
}
