// Package rpc serves the custody ledger over HTTP JSON-RPC and streams
// journal events to websocket subscribers.
package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxRequestBody bounds the size of one JSON-RPC request
const maxRequestBody = 1 << 20

// Server handles HTTP JSON-RPC requests
type Server struct {
	registry *MethodRegistry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewServer creates a new RPC server with the given timeout
func NewServer(svc *Services, timeout time.Duration) *Server {
	logger := svc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		registry: NewMethodRegistry(),
		timeout:  timeout,
		logger:   logger.Named("rpc"),
	}
	RegisterAllMethods(server.registry, svc)
	return server
}

// Registry returns the methods the server dispatches to
func (s *Server) Registry() *MethodRegistry {
	return s.registry
}

// Request is a JSON-RPC request.
// Format: {"method": "method_name", "params": [{...}]}
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.writeError(w, RpcErrorInternal("Failed to read request body"))
		return
	}
	defer r.Body.Close()

	var request Request
	if err := json.Unmarshal(body, &request); err != nil {
		s.writeError(w, NewRpcError(RpcINVALID_PARAMS, "jsonInvalid", "Invalid JSON: "+err.Error()))
		return
	}
	if request.Method == "" {
		s.writeError(w, NewRpcError(RpcMISSING_COMMAND, "missingCommand", "Missing method field"))
		return
	}

	// params is an array with one object
	var params json.RawMessage
	if len(request.Params) > 0 {
		params = request.Params[0]
	}

	ctx := &RpcContext{
		Context:  r.Context(),
		ClientIP: getClientIP(r),
	}
	if s.timeout > 0 {
		c, cancel := context.WithTimeout(ctx.Context, s.timeout)
		defer cancel()
		ctx.Context = c
	}

	result, rpcErr := s.Execute(ctx, request.Method, params)
	s.writeResponse(w, result, rpcErr)
}

// Execute runs a method by name
func (s *Server) Execute(ctx *RpcContext, method string, params json.RawMessage) (interface{}, *RpcError) {
	return execute(s.registry, s.logger, ctx, method, params)
}

func execute(registry *MethodRegistry, logger *zap.Logger, ctx *RpcContext, method string, params json.RawMessage) (interface{}, *RpcError) {
	handler, exists := registry.Get(method)
	if !exists {
		return nil, RpcErrorMethodNotFound(method)
	}

	start := time.Now()
	result, rpcErr := handler.Handle(ctx, params)
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("client", ctx.ClientIP),
		zap.Duration("took", time.Since(start)),
	}
	if rpcErr != nil {
		logger.Debug("rpc call failed", append(fields, zap.String("error", rpcErr.ErrorString))...)
	} else {
		logger.Debug("rpc call", fields...)
	}
	return result, rpcErr
}

// BuildResponse wraps a method outcome. Errors are reported inside the
// result object with status "error".
func BuildResponse(result interface{}, rpcErr *RpcError) map[string]interface{} {
	if rpcErr != nil {
		return map[string]interface{}{
			"result": map[string]interface{}{
				"status":        "error",
				"error":         rpcErr.ErrorString,
				"error_code":    rpcErr.Code,
				"error_message": rpcErr.Message,
			},
		}
	}

	// If result is already a map, add status to it
	if resultMap, ok := result.(map[string]interface{}); ok {
		resultMap["status"] = "success"
		return map[string]interface{}{"result": resultMap}
	}
	return map[string]interface{}{
		"result": map[string]interface{}{
			"status": "success",
			"data":   result,
		},
	}
}

func (s *Server) writeResponse(w http.ResponseWriter, result interface{}, rpcErr *RpcError) {
	data, err := json.Marshal(BuildResponse(result, rpcErr))
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, rpcErr *RpcError) {
	s.writeResponse(w, nil, rpcErr)
}

// Handler routes JSON-RPC on /, the websocket on /ws and Prometheus
// metrics on /metrics. A nil gatherer leaves /metrics out.
func Handler(svc *Services, timeout time.Duration, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	rpcServer := NewServer(svc, timeout)
	mux.Handle("/", rpcServer)
	mux.Handle("/ws", NewWebSocketServer(svc, rpcServer.Registry()))
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"custodyd"}`))
	})
	return mux
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
