// Package provider defines the common contract for language-model vendors.
// Each adapter translates this shape to and from its vendor's wire format.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is one chat message in the common shape.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Tool describes a callable tool offered to the model.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Request is the common invocation shape. Exactly one of Tools or
// JSONResponse may be active per call.
type Request struct {
	Model        string    `json:"model"`
	Messages     []Message `json:"messages"`
	Tools        []Tool    `json:"tools,omitempty"`
	JSONResponse bool      `json:"json_response,omitempty"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
}

// Validate rejects requests that enable both tools and JSON-response mode.
func (r *Request) Validate() error {
	if len(r.Tools) > 0 && r.JSONResponse {
		return fmt.Errorf("tools and json_response are mutually exclusive")
	}
	if r.Model == "" {
		return fmt.Errorf("model is required")
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("at least one message is required")
	}
	return nil
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Response is the common response shape.
type Response struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Error is a typed vendor failure carrying the status code and raw body.
// Non-2xx vendor responses are never silently swallowed.
type Error struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Client is one vendor adapter.
type Client interface {
	// Invoke performs one model call with the given credential.
	Invoke(ctx context.Context, credential string, req Request) (*Response, error)
}
