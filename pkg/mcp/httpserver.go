package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mcpcentral/mcp-time/pkg/audit"
)

// MaxRequestBodySize caps HTTP message bodies at 1MB.
const MaxRequestBodySize = 1 << 20

// HTTPServer adapts the streamable HTTP transport onto the dispatcher:
// CORS preflight, origin and protocol-version policy, status code mapping,
// and optional invocation logging.
type HTTPServer struct {
	srv    *Server
	policy Policy
	audit  *audit.Logger
	logger *slog.Logger
}

// NewHTTPServer creates an HTTP adapter around srv. auditLog may be nil.
func NewHTTPServer(srv *Server, policy Policy, auditLog *audit.Logger, logger *slog.Logger) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{srv: srv, policy: policy, audit: auditLog, logger: logger}
}

// Router returns the HTTP routing table: POST and OPTIONS on the root path,
// 405 for everything else.
func (h *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.handleMessage).Methods(http.MethodPost)
	r.HandleFunc("/", h.handlePreflight).Methods(http.MethodOptions)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		setCORSHeaders(w)
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})
	return r
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, MCP-Protocol-Version")
	w.Header().Set("Access-Control-Max-Age", "600")
}

func (h *HTTPServer) handlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.WriteHeader(http.StatusOK)
}

// handleMessage processes one JSON-RPC message delivered via POST.
func (h *HTTPServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic handling message", "panic", rec)
			h.writeEnvelope(w, http.StatusInternalServerError, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeInternalError, Message: "Internal server error"},
			})
		}
	}()

	origin := r.Header.Get("Origin")
	if err := h.policy.CheckOrigin(origin); err != nil {
		h.logger.Warn("origin rejected", "origin", origin)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if err := h.policy.CheckProtocolVersion(r.Header.Get("MCP-Protocol-Version")); err != nil {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		h.writeEnvelope(w, http.StatusBadRequest, Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: CodeParseError, Message: "failed to read request body"},
		})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeEnvelope(w, http.StatusBadRequest, Response{
			JSONRPC: "2.0",
			Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
		})
		return
	}

	resp := h.srv.Dispatch(&req)
	h.record(r.Context(), &req, resp, origin, start)

	if resp == nil {
		// notification, acknowledge with an empty body
		w.WriteHeader(http.StatusAccepted)
		return
	}
	h.writeEnvelope(w, http.StatusOK, *resp)
}

func (h *HTTPServer) writeEnvelope(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("write envelope", "err", err)
	}
}

// record logs a handled message to the invocation log, when configured.
func (h *HTTPServer) record(ctx context.Context, req *Request, resp *Response, origin string, start time.Time) {
	if h.audit == nil {
		return
	}

	entry := audit.Entry{
		RequestID: uuid.NewString(),
		Method:    req.Method,
		Origin:    origin,
		LatencyMs: time.Since(start).Milliseconds(),
		CreatedAt: time.Now(),
	}
	if parseMethod(req.Method) == methodToolsCall {
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err == nil {
			entry.Tool = params.Name
		}
	}
	if resp != nil {
		if res, ok := resp.Result.(ToolCallResult); ok {
			entry.IsError = res.IsError
		}
		if resp.Error != nil {
			entry.IsError = true
		}
	}

	if err := h.audit.Log(ctx, entry); err != nil {
		h.logger.Warn("audit log", "err", err)
	}
}
