package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nithinv16/dukaaon-extractor/internal/common"
	"github.com/nithinv16/dukaaon-extractor/internal/llm"
)

// Invoke implements llm.Invoker against the chat/completions API. Transient
// provider failures are retried by the shared retry policy; everything else
// surfaces immediately.
func (c *Client) Invoke(ctx context.Context, req llm.InvokeRequest) (llm.InvokeResponse, error) {
	rid := uuid.New().String()
	start := time.Now()
	model := c.modelFor(req.Tier)

	c.logger.Info("llm.invoke.start",
		"req_id", rid,
		"tier", string(req.Tier),
		"model", model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)

	body := map[string]any{
		"model":       model,
		"temperature": c.temperature(req.Temperature),
		"messages":    encodeMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		body["max_tokens"] = req.MaxTokens
	}
	if len(req.Tools) > 0 {
		body["tools"] = encodeTools(req.Tools)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var raw []byte
	err := c.retrier.Do(ctx, "openai.chat", func(ctx context.Context) error {
		var postErr error
		raw, postErr = c.post(ctx, endpoint, body)
		return postErr
	})
	if err != nil {
		c.logger.Error("llm.invoke.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.InvokeResponse{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					ID       string `json:"id"`
					Function struct {
						Name string `json:"name"`
						// The wire carries the serialized arguments as a JSON
						// string, not an embedded object.
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.invoke.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.InvokeResponse{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.invoke.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.InvokeResponse{}, fmt.Errorf("no choices in openai response")
	}

	msg := cc.Choices[0].Message
	out := llm.InvokeResponse{
		Content: strings.TrimSpace(msg.Content),
		Usage: llm.Usage{
			PromptTokens:     cc.Usage.PromptTokens,
			CompletionTokens: cc.Usage.CompletionTokens,
			TotalTokens:      cc.Usage.TotalTokens,
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}

	c.logger.Info("llm.invoke.ok",
		"req_id", rid,
		"content_len", len(out.Content),
		"tool_calls", len(out.ToolCalls),
		"total_tokens", out.Usage.TotalTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) modelFor(tier llm.Tier) string {
	if tier == llm.TierVision {
		return c.cfg.VisionModel
	}
	return c.cfg.FastModel
}

func (c *Client) temperature(override float32) float32 {
	if override > 0 {
		return override
	}
	return c.cfg.Temperature
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("openai status %d: %s", resp.StatusCode, string(raw))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, common.TransientError("openai request failed", err)
		}
		return nil, err
	}
	return raw, nil
}

// encodeMessages maps the neutral message shape onto the provider wire
// format, expanding image data URLs into multi-part content.
func encodeMessages(messages []llm.Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		enc := map[string]any{"role": string(m.Role)}

		switch {
		case m.ImageURL != "":
			enc["content"] = []map[string]any{
				{"type": "text", "text": m.Content},
				{"type": "image_url", "image_url": map[string]any{"url": m.ImageURL}},
			}
		default:
			enc["content"] = m.Content
		}

		if len(m.ToolCalls) > 0 {
			calls := make([]map[string]any, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				calls = append(calls, map[string]any{
					"id":   tc.ID,
					"type": "function",
					"function": map[string]any{
						"name":      tc.Name,
						"arguments": string(tc.Arguments),
					},
				})
			}
			enc["tool_calls"] = calls
		}
		if m.ToolCallID != "" {
			enc["tool_call_id"] = m.ToolCallID
		}
		out = append(out, enc)
	}
	return out
}

func encodeTools(tools []llm.Tool) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return out
}

// ImageDataURL encodes image bytes as a data URL for vision requests.
func ImageDataURL(image []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
}
