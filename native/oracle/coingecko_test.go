package oracle

import (
	"io"
	"math/big"
	"net/http"
	"strings"
	"testing"
)

type fakeDoer struct {
	status int
	body   string
	gotURL string
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.gotURL = req.URL.String()
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestCoinGeckoFeedParsesQuote(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{"ethereum":{"usd":2000.5,"last_updated_at":1700000000}}`}
	feed := NewCoinGeckoFeed(doer, "", "ethereum")

	reading, err := feed.LatestRound()
	if err != nil {
		t.Fatalf("latest round: %v", err)
	}
	if reading.Price.Cmp(big.NewInt(2000_50000000)) != 0 {
		t.Fatalf("unexpected scaled price: %s", reading.Price)
	}
	if reading.UpdatedAt.Unix() != 1_700_000_000 {
		t.Fatalf("unexpected timestamp: %d", reading.UpdatedAt.Unix())
	}
	if reading.RoundID != 1_700_000_000 {
		t.Fatalf("unexpected round id: %d", reading.RoundID)
	}
	if !strings.Contains(doer.gotURL, "ids=ethereum") || !strings.Contains(doer.gotURL, "include_last_updated_at=true") {
		t.Fatalf("unexpected query: %s", doer.gotURL)
	}
}

func TestCoinGeckoFeedRequiresTimestamp(t *testing.T) {
	doer := &fakeDoer{status: http.StatusOK, body: `{"ethereum":{"usd":2000}}`}
	feed := NewCoinGeckoFeed(doer, "", "ethereum")

	// A quote the guard cannot judge for freshness must not pass with a
	// locally invented timestamp.
	if _, err := feed.LatestRound(); err == nil {
		t.Fatalf("expected rejection of quote without last_updated_at")
	}
}

func TestCoinGeckoFeedRejectsBadResponses(t *testing.T) {
	doer := &fakeDoer{status: http.StatusTooManyRequests, body: `rate limited`}
	feed := NewCoinGeckoFeed(doer, "", "ethereum")
	if _, err := feed.LatestRound(); err == nil {
		t.Fatalf("expected rejection of non-200 response")
	}

	doer = &fakeDoer{status: http.StatusOK, body: `{"bitcoin":{"usd":1}}`}
	feed = NewCoinGeckoFeed(doer, "", "ethereum")
	if _, err := feed.LatestRound(); err == nil {
		t.Fatalf("expected rejection when the asset quote is missing")
	}

	doer = &fakeDoer{status: http.StatusOK, body: `{"ethereum":{"usd":-3,"last_updated_at":1700000000}}`}
	feed = NewCoinGeckoFeed(doer, "", "ethereum")
	if _, err := feed.LatestRound(); err == nil {
		t.Fatalf("expected rejection of non-positive price")
	}
}
