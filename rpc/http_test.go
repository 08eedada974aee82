package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stablecore/core/state"
	"stablecore/crypto"
	"stablecore/native/collateral"
	"stablecore/native/oracle"
	"stablecore/native/token"
	"stablecore/storage"
)

const testToken = "test-secret"

func testAddress(seed byte) crypto.Address {
	b := make([]byte, 20)
	for i := range b {
		b[i] = seed
	}
	return crypto.MustNewAddress(crypto.STCPrefix, b)
}

func newTestServer(t *testing.T) (*Server, crypto.Address, *token.Bank) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	feed := oracle.NewManualFeed()
	feed.Set(big.NewInt(2000_00000000), now, 1)
	guard := oracle.NewGuard(feed, 3*time.Hour)
	guard.SetClock(func() time.Time { return now })

	registry, err := collateral.NewRegistry([]string{"WETH"}, []*oracle.Guard{guard})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	custody := testAddress(0xCC)
	engine := collateral.NewEngine(custody, registry)
	engine.SetState(state.NewStore(storage.NewMemDB()))
	coin := token.NewStablecoin("Stable USD", "SUSD", custody)
	engine.SetStableLedger(token.NewModuleLedger(coin, custody))
	bank := token.NewBank()
	engine.SetBank(bank)

	server := NewServer(engine)
	server.authToken = testToken
	owner := testAddress(1)
	if err := bank.Credit("WETH", owner, mustUnits(t, 100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	return server, owner, bank
}

func mustUnits(t *testing.T, n int64) *big.Int {
	t.Helper()
	return new(big.Int).Mul(big.NewInt(n), collateral.Precision())
}

func call(t *testing.T, server *Server, authed bool, method string, params interface{}) RPCResponse {
	t.Helper()
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		req["params"] = []interface{}{params}
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if authed {
		httpReq.Header.Set("Authorization", "Bearer "+testToken)
	}
	recorder := httptest.NewRecorder()
	server.handle(recorder, httpReq)

	var resp RPCResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, recorder.Body.String())
	}
	return resp
}

func TestReadMethodsNeedNoAuth(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := call(t, server, false, "stable_getParams", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	if result["liquidationThreshold"].(float64) != 50 {
		t.Fatalf("unexpected threshold: %v", result["liquidationThreshold"])
	}

	resp = call(t, server, false, "stable_listAssets", nil)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestMutatingMethodsRequireAuth(t *testing.T) {
	server, owner, _ := newTestServer(t)

	params := map[string]string{
		"owner":  owner.String(),
		"asset":  "WETH",
		"amount": mustUnits(t, 1).String(),
	}
	resp := call(t, server, false, "stable_deposit", params)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %+v", resp.Error)
	}
	resp = call(t, server, true, "stable_deposit", params)
	if resp.Error != nil {
		t.Fatalf("authorized deposit failed: %+v", resp.Error)
	}
}

func TestDepositMintFlow(t *testing.T) {
	server, owner, bank := newTestServer(t)

	resp := call(t, server, true, "stable_deposit", map[string]string{
		"owner":  owner.String(),
		"asset":  "weth",
		"amount": mustUnits(t, 15).String(),
	})
	if resp.Error != nil {
		t.Fatalf("deposit: %+v", resp.Error)
	}
	if got := bank.BalanceOf("WETH", owner); got.Cmp(mustUnits(t, 85)) != 0 {
		t.Fatalf("bank balance not debited: %s", got)
	}

	resp = call(t, server, true, "stable_mint", map[string]string{
		"owner":  owner.String(),
		"amount": mustUnits(t, 12_000).String(),
	})
	if resp.Error != nil {
		t.Fatalf("mint: %+v", resp.Error)
	}

	resp = call(t, server, false, "stable_getPosition", map[string]string{"address": owner.String()})
	if resp.Error != nil {
		t.Fatalf("getPosition: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	if result["debt"].(string) != mustUnits(t, 12_000).String() {
		t.Fatalf("unexpected debt: %v", result["debt"])
	}
	if result["healthFactor"].(string) != "1250000000000000000" {
		t.Fatalf("unexpected health factor: %v", result["healthFactor"])
	}
}

func TestMintBeyondCapacityMapsToUnhealthyCode(t *testing.T) {
	server, owner, _ := newTestServer(t)

	resp := call(t, server, true, "stable_deposit", map[string]string{
		"owner":  owner.String(),
		"asset":  "WETH",
		"amount": mustUnits(t, 1).String(),
	})
	if resp.Error != nil {
		t.Fatalf("deposit: %+v", resp.Error)
	}
	resp = call(t, server, true, "stable_mint", map[string]string{
		"owner":  owner.String(),
		"amount": mustUnits(t, 1001).String(),
	})
	if resp.Error == nil || resp.Error.Code != codeUnhealthy {
		t.Fatalf("expected unhealthy code, got %+v", resp.Error)
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok || data["healthFactor"] == nil {
		t.Fatalf("expected health factor in error data, got %+v", resp.Error.Data)
	}
}

func TestUnknownMethodAndBadPayload(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := call(t, server, false, "stable_doesNotExist", nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", resp.Error)
	}

	httpReq := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	recorder := httptest.NewRecorder()
	server.handle(recorder, httpReq)
	var parsed RPCResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Error == nil || parsed.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", parsed.Error)
	}
}

func TestInvalidAddressRejected(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := call(t, server, false, "stable_getDebt", map[string]string{"address": "not-an-address"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", resp.Error)
	}
}

func TestRateLimitOnMutatingMethods(t *testing.T) {
	server, owner, _ := newTestServer(t)

	params := map[string]string{
		"owner":  owner.String(),
		"asset":  "WETH",
		"amount": "1",
	}
	var limited bool
	for i := 0; i < maxTxPerWindow+1; i++ {
		resp := call(t, server, true, "stable_deposit", params)
		if resp.Error != nil && resp.Error.Code == codeRateLimited {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("expected rate limit to trip after %d requests", maxTxPerWindow)
	}
}

func TestGetFeedReportsReading(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := call(t, server, false, "stable_getFeed", map[string]string{"asset": "weth"})
	if resp.Error != nil {
		t.Fatalf("getFeed: %+v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	if result["price"].(string) != "200000000000" {
		t.Fatalf("unexpected price: %v", result["price"])
	}
	if result["asset"].(string) != "WETH" {
		t.Fatalf("unexpected asset: %v", result["asset"])
	}
}
