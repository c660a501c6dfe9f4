package mcphost_test

import (
	"encoding/json"
	"testing"

	mcphost "github.com/vishnu2kmohan/mcp-server-langgraph-sub014"
)

func TestMustString_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    mcphost.MustString
		wantErr bool
	}{
		{name: "string input", input: `"req-42"`, want: "req-42"},
		{name: "integer input", input: `42`, want: "42"},
		{name: "float input truncates", input: `42.0`, want: "42"},
		{name: "object input", input: `{"a":1}`, wantErr: true},
		{name: "bool input", input: `true`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got mcphost.MustString
			err := json.Unmarshal([]byte(tc.input), &got)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for input %s", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMustString_MarshalJSON(t *testing.T) {
	bs, err := json.Marshal(mcphost.MustString("req-42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(bs) != `"req-42"` {
		t.Errorf("expected quoted string, got %s", bs)
	}
}

func TestTaskState_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		input string
		want  mcphost.TaskState
	}{
		{`"pending"`, mcphost.TaskStatePending},
		{`"running"`, mcphost.TaskStateRunning},
		{`"working"`, mcphost.TaskStateRunning},
		{`"input_required"`, mcphost.TaskStateRunning},
		{`"completed"`, mcphost.TaskStateCompleted},
		{`"failed"`, mcphost.TaskStateFailed},
		{`"cancelled"`, mcphost.TaskStateCancelled},
	}

	for _, tc := range cases {
		var got mcphost.TaskState
		if err := json.Unmarshal([]byte(tc.input), &got); err != nil {
			t.Fatalf("unexpected error for %s: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("input %s: expected %s, got %s", tc.input, tc.want, got)
		}
	}
}

func TestTaskState_Terminal(t *testing.T) {
	terminal := []mcphost.TaskState{
		mcphost.TaskStateCompleted,
		mcphost.TaskStateFailed,
		mcphost.TaskStateCancelled,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	active := []mcphost.TaskState{mcphost.TaskStatePending, mcphost.TaskStateRunning}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestLogLevel_Valid(t *testing.T) {
	valid := []mcphost.LogLevel{
		mcphost.LogLevelDebug,
		mcphost.LogLevelInfo,
		mcphost.LogLevelNotice,
		mcphost.LogLevelWarning,
		mcphost.LogLevelError,
		mcphost.LogLevelCritical,
		mcphost.LogLevelAlert,
		mcphost.LogLevelEmergency,
	}
	for _, level := range valid {
		if !level.Valid() {
			t.Errorf("expected %s to be valid", level)
		}
	}

	if mcphost.LogLevel("loud").Valid() {
		t.Error("expected unknown level to be invalid")
	}
}

func TestJSONRPCError_Error(t *testing.T) {
	err := &mcphost.JSONRPCError{Code: -32601, Message: "Method not found"}
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
}

func TestToolCallError_Unwrap(t *testing.T) {
	rpc := &mcphost.JSONRPCError{Code: -32603, Message: "boom"}
	err := &mcphost.ToolCallError{Tool: "index", RPC: rpc}
	if got := err.Unwrap(); got != error(rpc) {
		t.Errorf("expected wrapped RPC error, got %v", got)
	}

	// Without a wire error there is nothing to unwrap; a typed-nil
	// *JSONRPCError must not surface as a non-nil error.
	bare := &mcphost.ToolCallError{Tool: "index"}
	if got := bare.Unwrap(); got != nil {
		t.Errorf("expected nil unwrap, got %v", got)
	}
}
