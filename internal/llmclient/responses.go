// internal/llmclient/responses.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

// ResponsesClient talks to the computer-use model through the Responses API.
type ResponsesClient struct {
	*transport
}

// NewResponsesClient builds a client for {base_url}/responses.
func NewResponsesClient(cfg config.OpenAIConfig, logger *zap.Logger) (*ResponsesClient, error) {
	t, err := newTransport(cfg, logger.Named("llm_client.responses"))
	if err != nil {
		return nil, err
	}
	return &ResponsesClient{transport: t}, nil
}

// Create sends one turn. A response the service itself marks as failed is
// returned as an error.
func (c *ResponsesClient) Create(ctx context.Context, req schemas.ResponsesRequest) (*schemas.Response, error) {
	var resp schemas.Response
	if err := c.postJSON(ctx, "/responses", req, &resp); err != nil {
		return nil, fmt.Errorf("responses request failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("response %s failed: %s: %s", resp.ID, resp.Error.Code, resp.Error.Message)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("responses request returned no response id")
	}

	c.logger.Debug("Turn received.",
		zap.String("response_id", resp.ID),
		zap.String("status", resp.Status),
		zap.Int("pending_calls", len(resp.PendingCalls())))
	return &resp, nil
}
