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

	"alsmadex/native/dex"
	"alsmadex/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB

	requestsPerSecond = 10
	requestBurst      = 20
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes the exchange engine over JSON-RPC 2.0. Handles for tokens the
// owner may register are announced up front with RegisterLedger/RegisterFeed;
// dex_addToken resolves them by address.
type Server struct {
	engine *dex.Engine

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	ledgers  map[string]dex.TokenLedger
	feeds    map[string]dex.PriceFeed

	authToken string
}

// NewServer wraps the engine. The bearer token guarding mutating methods is
// read from ALSMADEX_RPC_TOKEN.
func NewServer(engine *dex.Engine) *Server {
	token := strings.TrimSpace(os.Getenv("ALSMADEX_RPC_TOKEN"))
	return &Server{
		engine:    engine,
		limiters:  make(map[string]*rate.Limiter),
		ledgers:   make(map[string]dex.TokenLedger),
		feeds:     make(map[string]dex.PriceFeed),
		authToken: token,
	}
}

// RegisterLedger makes a token ledger available to dex_addToken.
func (s *Server) RegisterLedger(ledger dex.TokenLedger) {
	if ledger == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[ledger.Address().String()] = ledger
}

// RegisterFeed makes a price feed available to dex_addToken.
func (s *Server) RegisterFeed(feed dex.PriceFeed) {
	if feed == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[feed.Address().String()] = feed
}

// Start blocks serving JSON-RPC on addr.
func (s *Server) Start(addr string) error {
	fmt.Printf("Starting JSON-RPC server on %s\n", addr)
	server := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	return server.ListenAndServe()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r)
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

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
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

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	w = recorder
	started := time.Now()
	method := "unknown"
	defer func() {
		observability.RPCMetrics().Observe(method, recorder.status, time.Since(started))
	}()

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
	method = req.Method

	if !s.allowSource(clientSource(r)) {
		observability.RPCMetrics().RecordThrottle("rate_limit")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	switch req.Method {
	case "dex_addToken":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleAddToken(w, r, req)
	case "dex_getTokenList":
		s.handleGetTokenList(w, r, req)
	case "dex_getTokenDetails":
		s.handleGetTokenDetails(w, r, req)
	case "dex_stake":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleStake(w, r, req)
	case "dex_unstake":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleUnstake(w, r, req)
	case "dex_getStakeDetails":
		s.handleGetStakeDetails(w, r, req)
	case "dex_withdrawStakingProfits":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleWithdrawStakingProfits(w, r, req)
	case "dex_getEstimatedSwapDetails":
		s.handleGetEstimatedSwapDetails(w, r, req)
	case "dex_swap":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSwap(w, r, req)
	case "dex_swapWithSlippageCheck":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSwapWithSlippageCheck(w, r, req)
	case "dex_getTreasuryBalance":
		s.handleGetTreasuryBalance(w, r, req)
	case "dex_withdrawTreasury":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleWithdrawTreasury(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
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

func clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allowSource(source string) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	limiter, ok := s.limiters[source]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst)
		s.limiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func (s *Server) ledgerFor(address string) (dex.TokenLedger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[address]
	return ledger, ok
}

func (s *Server) feedFor(address string) (dex.PriceFeed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[address]
	return feed, ok
}
