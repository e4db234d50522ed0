// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/cua-scheduler/internal/agent"
	"github.com/xkilldash9x/cua-scheduler/internal/config"
)

// NewPlanner is a factory function that creates the side-channel planner
// selected by configuration. A disabled planner yields (nil, nil).
func NewPlanner(ctx context.Context, cfg *config.Config, logger *zap.Logger) (agent.Planner, error) {
	if !cfg.Agent.PlannerEnabled {
		return nil, nil
	}

	switch cfg.Agent.PlannerProvider {
	case config.ProviderOpenAI, "":
		p, err := NewChatPlanner(cfg.OpenAI, cfg.Agent, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.ProviderGemini:
		p, err := NewGeminiPlanner(ctx, cfg.Gemini, cfg.Agent, "", logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown or unsupported planner provider: '%s'. Supported: [%s, %s]",
			cfg.Agent.PlannerProvider, config.ProviderOpenAI, config.ProviderGemini)
	}
}
