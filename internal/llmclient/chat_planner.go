// internal/llmclient/chat_planner.go
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	// Reasoning models reject max_tokens; max_completion_tokens works for all.
	MaxCompletionTokens int `json:"max_completion_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatPlanner asks a cheaper text model for a short high-level plan.
type ChatPlanner struct {
	*transport
	model     string
	maxTokens int
}

// NewChatPlanner builds a planner over {base_url}/chat/completions.
func NewChatPlanner(cfg config.OpenAIConfig, agentCfg config.AgentConfig, logger *zap.Logger) (*ChatPlanner, error) {
	t, err := newTransport(cfg, logger.Named("llm_client.planner"))
	if err != nil {
		return nil, err
	}
	return &ChatPlanner{transport: t, model: agentCfg.PlannerModel, maxTokens: agentCfg.PlannerMaxTokens}, nil
}

// Plan returns the model's plan text for instruction.
func (p *ChatPlanner) Plan(ctx context.Context, instruction string) (string, error) {
	req := chatRequest{
		Model:               p.model,
		Messages:            []chatMessage{{Role: "user", Content: instruction}},
		MaxCompletionTokens: p.maxTokens,
	}
	var resp chatResponse
	if err := p.postJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("planner request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("planner returned no choices")
	}

	p.logger.Debug("Plan received.",
		zap.String("model", p.model),
		zap.String("finish_reason", resp.Choices[0].FinishReason),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
