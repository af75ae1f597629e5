package model

import "encoding/json"

// JSONRPCVersion is the only protocol version accepted and produced.
const JSONRPCVersion = "2.0"

// Envelope is the outer JSON-RPC request frame. Pointer fields detect absence.
type Envelope struct {
	JSONRPC *string         `json:"jsonrpc"`
	Method  *string         `json:"method"`
	ID      *int64          `json:"id"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type resultFrame struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Result  map[string]any `json:"result,omitempty"`
	Error   map[string]any `json:"error,omitempty"`
}

type notifyFrame struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// NewResult encodes a success response. fields are merged next to "method".
func NewResult(method string, id int64, fields map[string]any) []byte {
	result := map[string]any{"method": method}
	for k, v := range fields {
		result[k] = v
	}
	return mustMarshal(resultFrame{JSONRPC: JSONRPCVersion, ID: id, Result: result})
}

// NewMessage encodes a response carrying a single human readable message,
// as an error object when isError is set.
func NewMessage(method string, id int64, message string, isError bool) []byte {
	body := map[string]any{"method": method, "message": message}
	frame := resultFrame{JSONRPC: JSONRPCVersion, ID: id}
	if isError {
		frame.Error = body
	} else {
		frame.Result = body
	}
	return mustMarshal(frame)
}

// NewNotify encodes a server-initiated notification.
func NewNotify(method string, params map[string]any) []byte {
	if params == nil {
		params = map[string]any{}
	}
	return mustMarshal(notifyFrame{JSONRPC: JSONRPCVersion, Method: method, Params: params})
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Only maps of JSON-safe values reach here.
		panic("model: marshal jsonrpc frame: " + err.Error())
	}
	return data
}
