package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"stablecore/crypto"
)

const defaultRPCURL = "http://localhost:8545"

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func call(url, token, method string, params interface{}) (json.RawMessage, error) {
	reqBody := rpcRequest{JSONRPC: "2.0", Method: method, ID: 1}
	if params != nil {
		reqBody.Params = []interface{}{params}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid response: %w (body %s)", err, strings.TrimSpace(string(body)))
	}
	if parsed.Error != nil {
		if len(parsed.Error.Data) > 0 {
			return nil, fmt.Errorf("rpc error %d: %s (%s)", parsed.Error.Code, parsed.Error.Message, parsed.Error.Data)
		}
		return nil, fmt.Errorf("rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}

func printResult(raw json.RawMessage) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Println(buf.String())
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: stablectl [flags] <command> [args]

Commands:
  position <address>                       show collateral, debt and health factor
  health <address>                         show the health factor
  value <address>                          show total collateral USD value
  deposited <address> <asset>              show the deposited balance of one asset
  debt <address>                           show the outstanding debt
  assets                                   list accepted collateral assets
  feed <asset>                             show the latest guarded price reading
  params                                   show protocol constants
  deposit <owner> <asset> <amount>         deposit collateral
  redeem <owner> <asset> <amount>          redeem collateral
  mint <owner> <amount>                    mint stablecoin against collateral
  burn <owner> <amount>                    repay and burn stablecoin
  deposit-mint <owner> <asset> <dep> <mint>  deposit and mint atomically
  burn-redeem <owner> <asset> <redeem> <burn>  burn and redeem atomically
  liquidate <liquidator> <target> <asset> <debtToCover>  liquidate an unhealthy position
  keygen                                   generate a new account key and address

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	rpcURL := flag.String("rpc", defaultRPCURL, "JSON-RPC endpoint")
	token := flag.String("token", os.Getenv("STABLE_RPC_TOKEN"), "bearer token for mutating commands")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	command, rest := args[0], args[1:]
	need := func(n int) {
		if len(rest) != n {
			fmt.Fprintf(os.Stderr, "stablectl: %s expects %d argument(s)\n", command, n)
			os.Exit(2)
		}
	}

	var (
		result json.RawMessage
		err    error
	)
	switch command {
	case "position":
		need(1)
		result, err = call(*rpcURL, "", "stable_getPosition", map[string]string{"address": rest[0]})
	case "health":
		need(1)
		result, err = call(*rpcURL, "", "stable_getHealthFactor", map[string]string{"address": rest[0]})
	case "value":
		need(1)
		result, err = call(*rpcURL, "", "stable_getCollateralValue", map[string]string{"address": rest[0]})
	case "deposited":
		need(2)
		result, err = call(*rpcURL, "", "stable_getDeposited", map[string]string{"address": rest[0], "asset": rest[1]})
	case "debt":
		need(1)
		result, err = call(*rpcURL, "", "stable_getDebt", map[string]string{"address": rest[0]})
	case "assets":
		need(0)
		result, err = call(*rpcURL, "", "stable_listAssets", nil)
	case "feed":
		need(1)
		result, err = call(*rpcURL, "", "stable_getFeed", map[string]string{"asset": rest[0]})
	case "params":
		need(0)
		result, err = call(*rpcURL, "", "stable_getParams", nil)
	case "deposit":
		need(3)
		result, err = call(*rpcURL, *token, "stable_deposit", map[string]string{
			"owner": rest[0], "asset": rest[1], "amount": rest[2],
		})
	case "redeem":
		need(3)
		result, err = call(*rpcURL, *token, "stable_redeem", map[string]string{
			"owner": rest[0], "asset": rest[1], "amount": rest[2],
		})
	case "mint":
		need(2)
		result, err = call(*rpcURL, *token, "stable_mint", map[string]string{
			"owner": rest[0], "amount": rest[1],
		})
	case "burn":
		need(2)
		result, err = call(*rpcURL, *token, "stable_burn", map[string]string{
			"owner": rest[0], "amount": rest[1],
		})
	case "deposit-mint":
		need(4)
		result, err = call(*rpcURL, *token, "stable_depositAndMint", map[string]string{
			"owner": rest[0], "asset": rest[1], "depositAmount": rest[2], "mintAmount": rest[3],
		})
	case "burn-redeem":
		need(4)
		result, err = call(*rpcURL, *token, "stable_burnAndRedeem", map[string]string{
			"owner": rest[0], "asset": rest[1], "redeemAmount": rest[2], "burnAmount": rest[3],
		})
	case "liquidate":
		need(4)
		result, err = call(*rpcURL, *token, "stable_liquidate", map[string]string{
			"liquidator": rest[0], "target": rest[1], "asset": rest[2], "debtToCover": rest[3],
		})
	case "keygen":
		need(0)
		key, keyErr := crypto.GeneratePrivateKey()
		if keyErr != nil {
			fmt.Fprintf(os.Stderr, "stablectl: generate key: %v\n", keyErr)
			os.Exit(1)
		}
		result, err = json.Marshal(map[string]string{
			"address":    key.PubKey().Address().String(),
			"privateKey": hex.EncodeToString(key.Bytes()),
		})
	default:
		fmt.Fprintf(os.Stderr, "stablectl: unknown command %q\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "stablectl: %v\n", err)
		os.Exit(1)
	}
	printResult(result)
}
