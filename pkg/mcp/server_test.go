package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mcpcentral/mcp-time/pkg/clock"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()
	clk := clock.NewWithClock(func() time.Time { return testNow }, "UTC")
	return New(clk, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name string, args string) ToolCallResult {
	t.Helper()
	params, _ := json.Marshal(map[string]any{
		"name":      name,
		"arguments": json.RawMessage(args),
	})
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`7`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected protocol error: %+v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal tool result: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	return result
}

func TestInitializeNegotiation(t *testing.T) {
	srv := testServer(t)
	tests := []struct {
		requested string
		want      string
	}{
		{"2025-06-18", "2025-06-18"},
		{"2025-03-26", "2025-03-26"},
		{"2024-11-05", "2024-11-05"},
		{"1999-01-01", "2024-11-05"},
		{"", "2024-11-05"},
	}
	for _, tt := range tests {
		params, _ := json.Marshal(InitializeParams{ProtocolVersion: tt.requested})
		resp := sendAndReceive(t, srv, Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  "initialize",
			Params:  params,
		})
		if resp.Error != nil {
			t.Fatalf("initialize(%q): unexpected error %+v", tt.requested, resp.Error)
		}

		data, _ := json.Marshal(resp.Result)
		var result InitializeResult
		json.Unmarshal(data, &result)

		if result.ProtocolVersion != tt.want {
			t.Errorf("initialize(%q): protocolVersion = %q, want %q", tt.requested, result.ProtocolVersion, tt.want)
		}
		if result.ServerInfo.Name != "mcp-time" {
			t.Errorf("server name = %q, want mcp-time", result.ServerInfo.Name)
		}
		if result.Instructions == "" {
			t.Error("instructions missing")
		}
	}
}

func TestToolsList(t *testing.T) {
	srv := testServer(t)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != 6 {
		t.Fatalf("got %d tools, want 6", len(result.Tools))
	}

	required := map[string][]string{
		"current_time":  nil,
		"relative_time": {"time"},
		"days_in_month": nil,
		"get_timestamp": nil,
		"convert_time":  {"time", "sourceTimezone", "targetTimezone"},
		"get_week_year": nil,
	}

	seen := map[string]int{}
	for _, tool := range result.Tools {
		seen[tool.Name]++

		want, ok := required[tool.Name]
		if !ok {
			t.Errorf("unexpected tool %q", tool.Name)
			continue
		}
		schema, _ := tool.InputSchema.(map[string]any)
		var got []string
		if req, ok := schema["required"].([]any); ok {
			for _, v := range req {
				got = append(got, v.(string))
			}
		}
		if len(got) != len(want) {
			t.Errorf("%s: required = %v, want %v", tool.Name, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: required = %v, want %v", tool.Name, got, want)
				break
			}
		}
	}
	for name, n := range seen {
		if n != 1 {
			t.Errorf("tool %q listed %d times", name, n)
		}
	}
}

func TestDaysInMonthTool(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "days_in_month", `{"date":"2024-02-15"}`)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content[0].Text)
	}
	if !strings.Contains(res.Content[0].Text, `"days": 29`) {
		t.Errorf("2024 February: got %s, want days 29", res.Content[0].Text)
	}

	res = callTool(t, srv, "days_in_month", `{"date":"2023-02-15"}`)
	if !strings.Contains(res.Content[0].Text, `"days": 28`) {
		t.Errorf("2023 February: got %s, want days 28", res.Content[0].Text)
	}
}

func TestConvertTimeTool(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "convert_time",
		`{"time":"2024-06-15 12:00:00","sourceTimezone":"UTC","targetTimezone":"America/Los_Angeles"}`)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content[0].Text)
	}
	if !strings.Contains(res.Content[0].Text, `"convertedTime": "2024-06-15 05:00:00"`) {
		t.Errorf("convertedTime wrong: %s", res.Content[0].Text)
	}
	if !strings.Contains(res.Content[0].Text, `"hourDifference": -7`) {
		t.Errorf("hourDifference wrong: %s", res.Content[0].Text)
	}
}

func TestCurrentTimeTool(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "current_time", `{"timezone":"Asia/Tokyo"}`)
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", res.Content[0].Text)
	}
	if !strings.Contains(res.Content[0].Text, `"utcTime": "2024-06-15 12:00:00"`) {
		t.Errorf("utcTime wrong: %s", res.Content[0].Text)
	}
	if !strings.Contains(res.Content[0].Text, `"localTime": "2024-06-15 21:00:00"`) {
		t.Errorf("localTime wrong: %s", res.Content[0].Text)
	}
}

func TestUnknownTool(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "time_travel", `{}`)
	if !res.IsError {
		t.Fatal("expected isError for unknown tool")
	}
	if !strings.Contains(res.Content[0].Text, "Unknown tool:") {
		t.Errorf("text = %q, want Unknown tool: prefix", res.Content[0].Text)
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "relative_time", `{}`)
	if !res.IsError {
		t.Fatal("expected isError for missing required argument")
	}
	if !strings.Contains(res.Content[0].Text, "time is required") {
		t.Errorf("text = %q, want a missing-argument message", res.Content[0].Text)
	}
}

func TestToolFailureIsNotProtocolError(t *testing.T) {
	srv := testServer(t)

	res := callTool(t, srv, "current_time", `{"timezone":"Not/AZone"}`)
	if !res.IsError {
		t.Fatal("expected isError for invalid timezone")
	}
	if !strings.Contains(res.Content[0].Text, "Not/AZone") {
		t.Errorf("text = %q, want the bad zone named", res.Content[0].Text)
	}
}

func TestUnknownMethod(t *testing.T) {
	srv := testServer(t)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "resources/list",
	})
	if resp.Error == nil {
		t.Fatal("expected a protocol error")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
	if string(resp.ID) != "9" {
		t.Errorf("id = %s, want 9", resp.ID)
	}
}

func TestNotificationProducesNoOutput(t *testing.T) {
	srv := testServer(t)
	line := []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("notification produced output: %s", out.String())
	}
}

func TestParseErrorOnBadLine(t *testing.T) {
	srv := testServer(t)
	line := []byte("{not json\n")

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeParseError {
		t.Errorf("got %+v, want parse error %d", resp.Error, CodeParseError)
	}
}

func TestResponseIDEchoesRequestID(t *testing.T) {
	srv := testServer(t)
	for _, id := range []string{`42`, `"abc-1"`} {
		resp := sendAndReceive(t, srv, Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(id),
			Method:  "tools/list",
		})
		if string(resp.ID) != id {
			t.Errorf("id = %s, want %s", resp.ID, id)
		}
	}
}
