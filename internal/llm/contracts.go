package llm

import (
	"context"
	"encoding/json"
)

// Tier selects which hosted-model tier serves a request: a fast/low-cost
// model for simple parsing prompts, or the higher-capability tier that
// supports tool invocation and direct image input.
type Tier string

const (
	TierFast   Tier = "fast"
	TierVision Tier = "vision"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in the running conversation. ImageURL carries a data
// URL for vision requests; ToolCalls/ToolCallID carry the tool-use protocol.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ImageURL   string     `json:"image_url,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes a tool offered to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type InvokeRequest struct {
	Tier        Tier      `json:"tier"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
}

type InvokeResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     Usage      `json:"usage"`
}

// Invoker is the interface the pipeline depends on for hosted-model calls.
type Invoker interface {
	Invoke(ctx context.Context, req InvokeRequest) (InvokeResponse, error)
}

// ToolExecutor runs one tool invocation and returns its textual result.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) (string, error)
}
