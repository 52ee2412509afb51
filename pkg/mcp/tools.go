package mcp

import (
	"encoding/json"
	"fmt"
)

// Tool names. The registry below and the dispatch switch in callTool must
// agree on these exactly.
const (
	toolCurrentTime  = "current_time"
	toolRelativeTime = "relative_time"
	toolDaysInMonth  = "days_in_month"
	toolGetTimestamp = "get_timestamp"
	toolConvertTime  = "convert_time"
	toolGetWeekYear  = "get_week_year"
)

// allTools is the static tool catalog served by tools/list. Built once,
// never mutated.
var allTools = []ToolDescriptor{
	{
		Name:        toolCurrentTime,
		Title:       "Current time",
		Description: "Get the current date and time in UTC and a given timezone.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"format": map[string]any{
					"type":        "string",
					"description": "Output pattern (default YYYY-MM-DD HH:mm:ss)",
				},
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name (default: server local zone)",
				},
			},
		},
	},
	{
		Name:        toolRelativeTime,
		Title:       "Relative time",
		Description: "Describe a date/time relative to now, e.g. \"in 5 minutes\" or \"2 hours ago\".",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"time"},
			"properties": map[string]any{
				"time": map[string]any{
					"type":        "string",
					"description": "The date/time to describe (e.g. 2024-06-15 12:00:00)",
				},
			},
		},
	},
	{
		Name:        toolDaysInMonth,
		Title:       "Days in month",
		Description: "Get the number of days in the month of a given date, or the current month.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "The date to inspect (optional, defaults to today)",
				},
			},
		},
	},
	{
		Name:        toolGetTimestamp,
		Title:       "Timestamp",
		Description: "Get the milliseconds since the Unix epoch for a date/time, or for now.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"time": map[string]any{
					"type":        "string",
					"description": "The date/time to convert (optional, defaults to now)",
				},
			},
		},
	},
	{
		Name:        toolConvertTime,
		Title:       "Convert time",
		Description: "Convert a wall-clock time between two IANA timezones.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"time", "sourceTimezone", "targetTimezone"},
			"properties": map[string]any{
				"time": map[string]any{
					"type":        "string",
					"description": "The wall-clock time to convert (e.g. 2024-06-15 12:00:00)",
				},
				"sourceTimezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone the input time is in",
				},
				"targetTimezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone to convert to",
				},
			},
		},
	},
	{
		Name:        toolGetWeekYear,
		Title:       "Week of year",
		Description: "Get the week number and ISO week number of a date, or of today.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "The date to inspect (optional, defaults to today)",
				},
			},
		},
	},
}

// Tool argument structs.

type currentTimeArgs struct {
	Format   string `json:"format"`
	Timezone string `json:"timezone"`
}

type timeArgs struct {
	Time string `json:"time"`
}

type dateArgs struct {
	Date string `json:"date"`
}

type convertTimeArgs struct {
	Time           string `json:"time"`
	SourceTimezone string `json:"sourceTimezone"`
	TargetTimezone string `json:"targetTimezone"`
}

// callTool routes a tool invocation by name. The switch is the single
// routing table; a name missing here is an unknown tool for callers, never
// a protocol error. Computation failures come back as isError results.
func (s *Server) callTool(name string, rawArgs json.RawMessage) ToolCallResult {
	switch name {
	case toolCurrentTime:
		var args currentTimeArgs
		if res, ok := decodeArgs(rawArgs, &args); !ok {
			return res
		}
		return toolResult(s.clock.CurrentTime(args.Format, args.Timezone))
	case toolRelativeTime:
		var args timeArgs
		if res, ok := decodeArgs(rawArgs, &args); !ok {
			return res
		}
		return toolResult(s.clock.RelativeTime(args.Time))
	case toolDaysInMonth:
		var args dateArgs
		if res, ok := decodeArgs(rawArgs, &args); !ok {
			return res
		}
		return toolResult(s.clock.DaysInMonth(args.Date))
	case toolGetTimestamp:
		var args timeArgs
		if res, ok := decodeArgs(rawArgs, &args); !ok {
			return res
		}
		return toolResult(s.clock.Timestamp(args.Time))
	case toolConvertTime:
		var args convertTimeArgs
		if res, ok := decodeArgs(rawArgs, &args); !ok {
			return res
		}
		return toolResult(s.clock.ConvertTime(args.Time, args.SourceTimezone, args.TargetTimezone))
	case toolGetWeekYear:
		var args dateArgs
		if res, ok := decodeArgs(rawArgs, &args); !ok {
			return res
		}
		return toolResult(s.clock.WeekYear(args.Date))
	default:
		return errorResult(fmt.Sprintf("Unknown tool: %s", name))
	}
}

// decodeArgs unmarshals tool arguments. Absent arguments leave the struct
// zero-valued so each computation can enforce its own required fields.
func decodeArgs(raw json.RawMessage, into any) (ToolCallResult, bool) {
	if len(raw) == 0 {
		return ToolCallResult{}, true
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return errorResult("Invalid arguments: " + err.Error()), false
	}
	return ToolCallResult{}, true
}

// toolResult wraps a computation outcome as a single text content block
// carrying pretty-printed JSON, or as an isError result on failure.
func toolResult(v any, err error) ToolCallResult {
	if err != nil {
		return errorResult(err.Error())
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Failed to encode result: " + err.Error())
	}
	return textResult(string(data))
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}
