package types

import "encoding/json"

// StreamContentType is the Content-Type written on relayed streams. Existing
// clients of the gateway expect it even though the body is NDJSON.
const StreamContentType = "text/event-stream"

// ProtocolChunk is one line of a streamed backend response. Chat streams carry
// partial text in message.content, generate streams in response.
type ProtocolChunk struct {
	Model      string       `json:"model,omitempty"`
	Message    *ChatMessage `json:"message,omitempty"`
	Response   string       `json:"response,omitempty"`
	Done       bool         `json:"done"`
	DoneReason string       `json:"done_reason,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// DecodeChunk decodes one stream line.
func DecodeChunk(line []byte) (*ProtocolChunk, error) {
	var c ProtocolChunk
	if err := json.Unmarshal(line, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Text returns the partial reply carried by the chunk, or "" if none.
func (c *ProtocolChunk) Text() string {
	if c.Message != nil {
		return c.Message.Content
	}
	return c.Response
}

// ChatResponse is a complete non-streaming backend response.
type ChatResponse struct {
	Model      string       `json:"model,omitempty"`
	Message    *ChatMessage `json:"message,omitempty"`
	Response   *string      `json:"response,omitempty"`
	Done       bool         `json:"done"`
	DoneReason string       `json:"done_reason,omitempty"`
}

// AssistantMessage returns the reply as a message. ok is false when the body
// carries neither a message nor a generate response.
func (r *ChatResponse) AssistantMessage() (ChatMessage, bool) {
	if r.Message != nil {
		return *r.Message, true
	}
	if r.Response != nil {
		return ChatMessage{Role: RoleAssistant, Content: *r.Response}, true
	}
	return ChatMessage{}, false
}
