package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role values used by the gateway. Roles are not validated.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is a single conversation message. Fields the gateway does not
// model (tool_name, backend extensions) are kept in Extra and written back
// unchanged, so stored history matches what was exchanged.
type ChatMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Thinking  string          `json:"thinking,omitempty"`
	Images    []string        `json:"images,omitempty"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// messageFields has ChatMessage's layout without its JSON methods.
type messageFields ChatMessage

var modeledMessageKeys = []string{"role", "content", "thinking", "images", "tool_calls"}

// UnmarshalJSON decodes the modeled fields and collects the rest into Extra.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var fields messageFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range modeledMessageKeys {
		delete(all, key)
	}

	fields.Extra = nil
	if len(all) > 0 {
		fields.Extra = all
	}
	*m = ChatMessage(fields)
	return nil
}

// MarshalJSON writes the modeled fields merged with Extra. Modeled fields win
// on a key collision.
func (m ChatMessage) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(messageFields(m))
	if err != nil || len(m.Extra) == 0 {
		return base, err
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+len(modeledMessageKeys))
	for k, v := range m.Extra {
		merged[k] = v
	}
	var modeled map[string]json.RawMessage
	if err := json.Unmarshal(base, &modeled); err != nil {
		return nil, err
	}
	for k, v := range modeled {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ChatRequest is an inbound chat or generate request.
type ChatRequest struct {
	// Model is the backend model name. Required.
	Model string `json:"model"`

	// Messages is the conversation so far. Required and non-empty.
	Messages []ChatMessage `json:"messages"`

	// Stream is nil when the client omitted the field.
	Stream *bool `json:"stream,omitempty"`

	// Raw is the request body exactly as received.
	Raw []byte `json:"-"`
}

// DecodeChatRequest decodes body into a ChatRequest and keeps the raw bytes.
// Malformed JSON yields a ValidationError; required fields are not checked here.
func DecodeChatRequest(body []byte) (*ChatRequest, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, NewValidationError("body", "request body is empty")
	}

	var req ChatRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}
	req.Raw = body
	return &req, nil
}

// Validate checks the fields the gateway relies on.
func (r *ChatRequest) Validate() error {
	if r.Model == "" {
		return NewValidationError("model", "model is required")
	}
	if len(r.Messages) == 0 {
		return NewValidationError("messages", "messages must be a non-empty array")
	}
	return nil
}

// IsStreaming reports whether the response should be streamed. Streaming is
// the default; only an explicit "stream": false selects a single response.
func (r *ChatRequest) IsStreaming() bool {
	return r.Stream == nil || *r.Stream
}

// CloneMessages returns a copy of the request messages with room for one more.
func (r *ChatRequest) CloneMessages() []ChatMessage {
	out := make([]ChatMessage, len(r.Messages), len(r.Messages)+1)
	copy(out, r.Messages)
	return out
}
