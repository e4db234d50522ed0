// internal/llmclient/gemini_planner.go
package llmclient

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

// GeminiPlanner produces the side-channel plan with a Gemini model.
type GeminiPlanner struct {
	client    *genai.Client
	model     string
	maxTokens int32
	logger    *zap.Logger
}

// NewGeminiPlanner creates a planner backed by the Gemini API. baseURL is
// only set by tests.
func NewGeminiPlanner(ctx context.Context, cfg config.GeminiConfig, agentCfg config.AgentConfig, baseURL string, logger *zap.Logger) (*GeminiPlanner, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiPlanner{
		client:    client,
		model:     cfg.Model,
		maxTokens: int32(agentCfg.PlannerMaxTokens),
		logger:    logger.Named("llm_client.gemini_planner"),
	}, nil
}

// Plan returns the model's plan text for instruction.
func (p *GeminiPlanner) Plan(ctx context.Context, instruction string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(instruction), &genai.GenerateContentConfig{
		MaxOutputTokens: p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini planner request failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini planner returned no text")
	}
	p.logger.Debug("Plan received.", zap.String("model", p.model))
	return text, nil
}
