package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"stablecore/native/collateral"
	"stablecore/native/oracle"
	"stablecore/observability/metrics"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxTxPerWindow  = 30

	// AuthTokenEnv names the environment variable holding the bearer token
	// required for mutating methods.
	AuthTokenEnv = "STABLE_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeUnhealthy      = -32030
	codeStaleOracle    = -32031
)

// Server exposes the collateral engine over JSON-RPC. Mutating methods are
// serialised through txMu so the engine observes the strictly serial call
// pattern it requires; reads go through without it.
type Server struct {
	engine *collateral.Engine

	txMu sync.Mutex

	mu           sync.Mutex
	rateLimiters map[string]*rate.Limiter
	authToken    string
}

// NewServer wires the RPC surface to the engine. The bearer token for
// mutating methods is read from STABLE_RPC_TOKEN.
func NewServer(engine *collateral.Engine) *Server {
	token := strings.TrimSpace(os.Getenv(AuthTokenEnv))
	return &Server{
		engine:       engine,
		rateLimiters: make(map[string]*rate.Limiter),
		authToken:    token,
	}
}

// Start serves JSON-RPC on addr and blocks until the listener fails.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps engine sentinel errors onto RPC error codes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	var hfErr *collateral.HealthFactorError
	switch {
	case errors.As(err, &hfErr):
		data := map[string]string{}
		if hfErr.HealthFactor != nil {
			data["healthFactor"] = hfErr.HealthFactor.String()
		}
		writeError(w, http.StatusOK, id, codeUnhealthy, err.Error(), data)
	case errors.Is(err, oracle.ErrStalePrice), errors.Is(err, oracle.ErrInvalidPrice):
		metrics.Collateral().ObserveStaleOracle()
		writeError(w, http.StatusOK, id, codeStaleOracle, err.Error(), nil)
	case errors.Is(err, collateral.ErrZeroAmount),
		errors.Is(err, collateral.ErrUnsupportedAsset),
		errors.Is(err, collateral.ErrDebtUnderflow),
		errors.Is(err, collateral.ErrInsufficientCollateral),
		errors.Is(err, collateral.ErrHealthFactorOk):
		writeError(w, http.StatusOK, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusOK, id, codeServerError, err.Error(), nil)
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	if handler, ok := s.readHandlers()[req.Method]; ok {
		handler(w, req)
		return
	}
	if handler, ok := s.writeHandlers()[req.Method]; ok {
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		if !s.allowSource(clientSource(r), time.Now()) {
			writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		s.txMu.Lock()
		defer s.txMu.Unlock()
		handler(w, req)
		return
	}
	writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
}

type handlerFunc func(http.ResponseWriter, *RPCRequest)

func (s *Server) readHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"stable_getPosition":        s.handleGetPosition,
		"stable_getHealthFactor":    s.handleGetHealthFactor,
		"stable_getCollateralValue": s.handleGetCollateralValue,
		"stable_getDeposited":       s.handleGetDeposited,
		"stable_getDebt":            s.handleGetDebt,
		"stable_listAssets":         s.handleListAssets,
		"stable_getFeed":            s.handleGetFeed,
		"stable_getParams":          s.handleGetParams,
	}
}

func (s *Server) writeHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"stable_deposit":        s.handleDeposit,
		"stable_redeem":         s.handleRedeem,
		"stable_mint":           s.handleMint,
		"stable_burn":           s.handleBurn,
		"stable_depositAndMint": s.handleDepositAndMint,
		"stable_burnAndRedeem":  s.handleBurnAndRedeem,
		"stable_liquidate":      s.handleLiquidate,
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string, now time.Time) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	limiter, ok := s.rateLimiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(rateLimitWindow/maxTxPerWindow), maxTxPerWindow)
		s.rateLimiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.AllowN(now, 1)
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
