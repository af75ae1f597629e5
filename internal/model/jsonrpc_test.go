package model

import (
	"encoding/json"
	"testing"
)

func TestNewResult(t *testing.T) {
	data := NewResult("MYMPD_API_PING", 7, map[string]any{"message": "pong"})

	var got struct {
		JSONRPC string `json:"jsonrpc"`
		ID      int64  `json:"id"`
		Result  struct {
			Method  string `json:"method"`
			Message string `json:"message"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.JSONRPC != "2.0" {
		t.Errorf("jsonrpc = %q, want 2.0", got.JSONRPC)
	}
	if got.ID != 7 {
		t.Errorf("id = %d, want 7", got.ID)
	}
	if got.Result.Method != "MYMPD_API_PING" {
		t.Errorf("method = %q, want MYMPD_API_PING", got.Result.Method)
	}
	if got.Result.Message != "pong" {
		t.Errorf("message = %q, want pong", got.Result.Message)
	}
}

func TestNewMessage_Error(t *testing.T) {
	data := NewMessage("", 0, "Invalid API request", true)

	var got map[string]json.RawMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := got["error"]; !ok {
		t.Errorf("expected error object in %s", data)
	}
	if _, ok := got["result"]; ok {
		t.Errorf("unexpected result object in %s", data)
	}
}

func TestNewNotify(t *testing.T) {
	data := NewNotify("welcome", map[string]any{"mympdVersion": "dev"})

	var got struct {
		Method string            `json:"method"`
		Params map[string]string `json:"params"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Method != "welcome" {
		t.Errorf("method = %q, want welcome", got.Method)
	}
	if got.Params["mympdVersion"] != "dev" {
		t.Errorf("mympdVersion = %q, want dev", got.Params["mympdVersion"])
	}
}

func TestIsDirect(t *testing.T) {
	tests := []struct {
		id   int64
		want bool
	}{
		{ConnInternal, false},
		{ConnBroadcast, false},
		{1, true},
		{2147483647, true},
	}
	for _, tt := range tests {
		if got := IsDirect(tt.id); got != tt.want {
			t.Errorf("IsDirect(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
