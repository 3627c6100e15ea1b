// Package rpc implements the wallet API server. Every method is reachable as
// a REST-style POST to /<method> and through the JSON-RPC 2.0 endpoint at /.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Klingon-tech/zwalletd/config"
	"github.com/Klingon-tech/zwalletd/internal/accounts"
	"github.com/Klingon-tech/zwalletd/internal/chainsync"
	klog "github.com/Klingon-tech/zwalletd/internal/log"
	"github.com/Klingon-tech/zwalletd/internal/metrics"
	"github.com/Klingon-tech/zwalletd/pkg/address"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// RequestIDHeader carries the per-request ID in responses.
const RequestIDHeader = "X-Request-ID"

// AccountStore is the account index the API serves.
type AccountStore interface {
	CreateAccount(label string) (*accounts.Account, error)
	IssueAddress(account uint32, family types.Family, label string) (*accounts.Address, error)
	GetAddress(account, index uint32) (*accounts.Address, error)
	FindAddress(addr string) (*accounts.Address, error)
	ListAccounts() []accounts.AccountInfo
	ListAddresses(account uint32) ([]*accounts.Address, error)
}

// SyncSource reports chain sync status.
type SyncSource interface {
	GetSyncStatus(ctx context.Context) (*chainsync.Snapshot, error)
	Height(ctx context.Context) (uint64, error)
}

// AddressDecoder parses address strings of one network.
type AddressDecoder interface {
	Decode(s string) (*address.Decoded, error)
	Network() *types.Network
}

type handlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, *Error)

// Server is the wallet API HTTP server.
type Server struct {
	addr        string
	store       AccountStore
	sync        SyncSource
	decoder     AddressDecoder
	metrics     *metrics.Metrics // nil = /metrics disabled.
	handlers    map[string]handlerFunc
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

// New creates a new API server. The rpcCfg parameter controls IP filtering
// and CORS. A zero-value RPCConfig allows all IPs and disables CORS.
func New(addr string, store AccountStore, sync SyncSource, decoder AddressDecoder, rpcCfg ...config.RPCConfig) *Server {
	s := &Server{
		addr:    addr,
		store:   store,
		sync:    sync,
		decoder: decoder,
		logger:  klog.WithComponent("rpc"),
	}
	s.handlers = map[string]handlerFunc{
		"sync_info":        s.handleSyncInfo,
		"create_account":   s.handleCreateAccount,
		"create_address":   s.handleCreateAddress,
		"get_address":      s.handleGetAddress,
		"get_addresses":    s.handleGetAddresses,
		"get_accounts":     s.handleGetAccounts,
		"validate_address": s.handleValidateAddress,
		"get_height":       s.handleGetHeight,
		"get_fee_estimate": s.handleGetFeeEstimate,
	}

	if len(rpcCfg) > 0 {
		s.allowedNets = parseAllowedIPs(rpcCfg[0].AllowedIPs)
		s.corsOrigins = rpcCfg[0].CORSOrigins
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
	}

	return s
}

// SetMetrics enables GET /metrics and per-method request counters.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("rpc listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("RPC server error")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// handleRequest is the main HTTP handler.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	w.Header().Set(RequestIDHeader, reqID)
	logger := s.logger.With().Str("request_id", reqID).Logger()

	// IP filtering.
	if len(s.allowedNets) > 0 {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ip := net.ParseIP(host)
		if ip == nil || !s.isIPAllowed(ip) {
			logger.Debug().Str("remote", r.RemoteAddr).Msg("Rejected request from disallowed IP")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	// CORS headers.
	s.setCORSHeaders(w, r)

	// Handle CORS preflight.
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.URL.Path == "/metrics" && s.metrics != nil && r.Method == http.MethodGet {
		s.metrics.Handler().ServeHTTP(w, r)
		return
	}

	rest := r.URL.Path != "/"
	fail := func(code int, message string) {
		if rest {
			writeRESTError(w, &Error{Code: code, Message: message})
		} else {
			writeError(w, nil, code, message)
		}
	}

	if r.Method != http.MethodPost {
		fail(CodeInvalidRequest, "only POST method is allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		fail(CodeParseError, "failed to read request body")
		return
	}
	if len(body) > maxBodySize {
		fail(CodeInvalidRequest, "request body too large")
		return
	}

	if rest {
		s.serveREST(r.Context(), w, strings.TrimPrefix(r.URL.Path, "/"), body, logger)
		return
	}
	s.serveJSONRPC(r.Context(), w, body, logger)
}

// serveJSONRPC handles one JSON-RPC 2.0 request at /.
func (s *Server) serveJSONRPC(ctx context.Context, w http.ResponseWriter, body []byte, logger zerolog.Logger) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, CodeParseError, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, CodeInvalidRequest, "jsonrpc must be \"2.0\"")
		return
	}

	result, rpcErr := s.call(ctx, req.Method, req.Params, logger)
	if rpcErr != nil {
		writeJSON(w, http.StatusOK, Response{
			JSONRPC: "2.0",
			Error:   rpcErr,
			ID:      req.ID,
		})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      req.ID,
	})
}

// serveREST handles POST /<method>. The body is the params object and the
// response body is the bare result.
func (s *Server) serveREST(ctx context.Context, w http.ResponseWriter, method string, body []byte, logger zerolog.Logger) {
	result, rpcErr := s.call(ctx, method, body, logger)
	if rpcErr != nil {
		writeRESTError(w, rpcErr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// call routes a request to its handler.
func (s *Server) call(ctx context.Context, method string, params json.RawMessage, logger zerolog.Logger) (interface{}, *Error) {
	h, ok := s.handlers[method]
	if !ok {
		return nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method %q not found", method)}
	}

	start := time.Now()
	result, rpcErr := h(logger.WithContext(ctx), params)
	if s.metrics != nil {
		s.metrics.ObserveRequest(method, rpcErr == nil)
	}

	ev := logger.Debug()
	if rpcErr != nil {
		ev = logger.Info().Int("code", rpcErr.Code).Str("error", rpcErr.Message)
	}
	ev.Str("method", method).Dur("elapsed", time.Since(start)).Msg("API call")
	return result, rpcErr
}

// writeJSON writes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON-RPC error response.
func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	writeJSON(w, http.StatusOK, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message},
		ID:      id,
	})
}

// writeRESTError writes a REST error response with the matching HTTP status.
func writeRESTError(w http.ResponseWriter, e *Error) {
	writeJSON(w, e.HTTPStatus(), RESTError{Error: e.Message, Code: e.Code})
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	// Check if origin is allowed.
	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}

	if allowed {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
	}
}

// parseParams unmarshals the request params into the given target. Absent
// or null params leave target at its zero value.
func parseParams(raw json.RawMessage, target interface{}) *Error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return &Error{Code: CodeInvalidParams, Message: "params must be a JSON object"}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}
