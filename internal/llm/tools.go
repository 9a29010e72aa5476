package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// MaxToolIterations bounds the tool-use loop; exceeding it is a client-side
// error rather than an unbounded conversation.
const MaxToolIterations = 5

// InvokeWithTools drives the tool-use protocol: while the model responds with
// tool calls, each named tool is executed, an assistant tool-use message and a
// tool-result message are appended to the running conversation, and the model
// is re-invoked. Only the vision/tool-capable tier reaches this path.
func InvokeWithTools(ctx context.Context, inv Invoker, req InvokeRequest, exec ToolExecutor, logger *slog.Logger) (InvokeResponse, error) {
	if logger == nil {
		logger = slog.Default()
	}

	messages := make([]Message, len(req.Messages))
	copy(messages, req.Messages)

	var resp InvokeResponse
	for iteration := 0; iteration < MaxToolIterations; iteration++ {
		req.Messages = messages
		var err error
		resp, err = inv.Invoke(ctx, req)
		if err != nil {
			return InvokeResponse{}, err
		}
		if len(resp.ToolCalls) == 0 {
			return resp, nil
		}
		if exec == nil {
			return InvokeResponse{}, fmt.Errorf("model requested tools but no executor is configured")
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			logger.Info("llm.tool.execute",
				"iteration", iteration+1,
				"tool", call.Name,
				"call_id", call.ID,
			)
			result, err := exec.Execute(ctx, call)
			if err != nil {
				logger.Warn("llm.tool.failed", "tool", call.Name, "error", err)
				result = "tool error: " + err.Error()
			}
			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return InvokeResponse{}, fmt.Errorf("max tool iterations (%d) exceeded", MaxToolIterations)
}
