package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcpcentral/mcp-time/pkg/clock"
)

const serverName = "mcp-time"

const serverInstructions = "Date and time utilities: current time, relative " +
	"phrasing, days in month, epoch timestamps, timezone conversion, and week " +
	"numbers. Times are accepted as YYYY-MM-DD or YYYY-MM-DD HH:mm:ss; " +
	"timezones are IANA names such as Asia/Tokyo."

// method is the closed set of JSON-RPC methods this server handles.
type method int

const (
	methodUnknown method = iota
	methodInitialize
	methodInitialized
	methodToolsList
	methodToolsCall
)

func parseMethod(name string) method {
	switch name {
	case "initialize":
		return methodInitialize
	case "notifications/initialized", "initialized":
		return methodInitialized
	case "tools/list":
		return methodToolsList
	case "tools/call":
		return methodToolsCall
	default:
		return methodUnknown
	}
}

// Server dispatches MCP messages to the time tools. It holds no mutable
// state, so one instance can serve both transports and any number of
// concurrent requests.
type Server struct {
	clock   *clock.Service
	version string
	logger  *slog.Logger
}

// New creates a Server backed by the given clock service.
func New(clk *clock.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{clock: clk, version: version, logger: logger}
}

// Run reads JSON-RPC requests from r line-by-line and writes responses to w.
// Notifications produce no output. It blocks until r is closed or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(w, Response{
				JSONRPC: "2.0",
				Error:   &RPCError{Code: CodeParseError, Message: "parse error"},
			})
			continue
		}

		resp := s.Dispatch(&req)
		if resp == nil {
			// notification, nothing goes back
			continue
		}
		s.writeResponse(w, *resp)
	}
	return scanner.Err()
}

// Dispatch handles a single request and returns the response, or nil for
// notifications.
func (s *Server) Dispatch(req *Request) *Response {
	switch parseMethod(req.Method) {
	case methodInitialize:
		return s.handleInitialize(req)
	case methodInitialized:
		return nil
	case methodToolsList:
		return s.handleToolsList(req)
	case methodToolsCall:
		return s.handleToolsCall(req)
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("unknown method: %s", req.Method)},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	var params InitializeParams
	if len(req.Params) > 0 {
		// A malformed params block still gets the fallback version.
		_ = json.Unmarshal(req.Params, &params)
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: InitializeResult{
			ProtocolVersion: negotiateVersion(params.ProtocolVersion),
			ServerInfo:      ServerInfo{Name: serverName, Version: s.version},
			Capabilities:    map[string]any{"tools": map[string]any{}},
			Instructions:    serverInstructions,
		},
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  ToolsListResult{Tools: allTools},
	}
}

func (s *Server) handleToolsCall(req *Request) *Response {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: CodeInvalidParams, Message: "invalid params"},
		}
	}
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  s.callTool(params.Name, params.Arguments),
	}
}

func (s *Server) writeResponse(w io.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", "err", err)
		return
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write response", "err", err)
	}
}
