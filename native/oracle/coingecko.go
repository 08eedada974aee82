package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// HTTPDoer abstracts http.Client for ease of testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const defaultCoinGeckoEndpoint = "https://api.coingecko.com/api/v3/simple/price"

// CoinGeckoFeed adapts the public CoinGecko simple price API into a PriceFeed
// for a single asset. Round identifiers are synthesised from the observation
// timestamp since the upstream API has no round concept.
type CoinGeckoFeed struct {
	client   HTTPDoer
	endpoint string
	assetID  string
}

// NewCoinGeckoFeed constructs a new adapter for the given CoinGecko asset
// identifier (e.g. "ethereum"). When the client is nil http.DefaultClient is
// used.
func NewCoinGeckoFeed(client HTTPDoer, endpoint, assetID string) *CoinGeckoFeed {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = defaultCoinGeckoEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &CoinGeckoFeed{client: client, endpoint: ep, assetID: strings.ToLower(strings.TrimSpace(assetID))}
}

// LatestRound fetches the current USD price for the configured asset.
func (f *CoinGeckoFeed) LatestRound() (Reading, error) {
	if f == nil {
		return Reading{}, fmt.Errorf("coingecko feed not configured")
	}
	if f.assetID == "" {
		return Reading{}, fmt.Errorf("coingecko feed: asset identifier required")
	}
	req, err := http.NewRequest(http.MethodGet, f.endpoint, nil)
	if err != nil {
		return Reading{}, err
	}
	values := url.Values{}
	values.Set("ids", f.assetID)
	values.Set("vs_currencies", "usd")
	values.Set("include_last_updated_at", "true")
	req.URL.RawQuery = values.Encode()
	resp, err := f.client.Do(req)
	if err != nil {
		return Reading{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Reading{}, fmt.Errorf("coingecko feed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var payload map[string]map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return Reading{}, fmt.Errorf("coingecko feed: decode: %w", err)
	}
	entry, ok := payload[f.assetID]
	if !ok {
		return Reading{}, fmt.Errorf("coingecko feed: quote missing for %s", f.assetID)
	}
	var priceStr string
	if raw, exists := entry["usd"]; exists {
		switch v := raw.(type) {
		case json.Number:
			priceStr = v.String()
		case string:
			priceStr = v
		case float64:
			priceStr = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			priceStr = fmt.Sprintf("%v", v)
		}
	}
	priceStr = strings.TrimSpace(priceStr)
	if priceStr == "" {
		return Reading{}, fmt.Errorf("coingecko feed: empty price")
	}
	rat, ok := new(big.Rat).SetString(priceStr)
	if !ok || rat.Sign() <= 0 {
		return Reading{}, fmt.Errorf("coingecko feed: invalid price %q", priceStr)
	}
	var ts time.Time
	if rawTs, exists := entry["last_updated_at"]; exists {
		switch v := rawTs.(type) {
		case json.Number:
			if parsed, err := v.Int64(); err == nil && parsed > 0 {
				ts = time.Unix(parsed, 0)
			}
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && parsed > 0 {
				ts = time.Unix(parsed, 0)
			}
		case float64:
			if v > 0 {
				ts = time.Unix(int64(v), 0)
			}
		}
	}
	// Without an upstream timestamp the staleness guard has nothing to judge;
	// never substitute the local clock.
	if ts.IsZero() {
		return Reading{}, fmt.Errorf("coingecko feed: missing last_updated_at for %s", f.assetID)
	}
	return Reading{Price: ratToFeedUnits(rat), UpdatedAt: ts, RoundID: uint64(ts.Unix())}, nil
}
