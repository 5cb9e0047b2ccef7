package jsonrpcx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Version is the only protocol version accepted
const Version = "2.0"

// Request represents a JSON-RPC 2.0 request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// Error represents a JSON-RPC 2.0 error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Notification is a request without an id; pushed to SSE clients
type Notification struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

var errBadVersion = errors.New("jsonrpc version must be 2.0")

// NewNotification builds a 2.0 notification
func NewNotification(method string, params any) Notification {
	return Notification{
		Jsonrpc: Version,
		Method:  method,
		Params:  params,
	}
}

// ParseRequest parses JSON-RPC 2.0 request from HTTP request body
func ParseRequest(r *http.Request) (*Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	defer r.Body.Close()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}

	if req.JSONRPC != Version {
		return nil, errBadVersion
	}

	return &req, nil
}

// Success sends a successful JSON-RPC 2.0 response
func Success(w http.ResponseWriter, id any, result any) {
	Write(w, Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	})
}

// SendError sends an error JSON-RPC 2.0 response
func SendError(w http.ResponseWriter, id any, code int, message string) {
	Write(w, Response{
		JSONRPC: Version,
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	})
}

// Write sends a JSON-RPC 2.0 response (always HTTP 200)
func Write(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	_ = json.NewEncoder(w).Encode(response)
}
