package llm

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sant0-9/promptly/internal/config"
)

// NewInvoker creates the execution client from config
func NewInvoker(cfg *config.Config, logger *zap.Logger) (*OpenAIClient, error) {
	opts := []OpenAIOption{
		WithName(cfg.Provider),
		WithBaseURL(cfg.Endpoint()),
		WithTimeout(cfg.Timeout()),
		WithRateLimit(cfg.RequestsPerMinute),
		WithLogger(logger),
	}

	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.WithHintf(
				errors.New("openai requires an API key"),
				"set %s or run promptly to enter one", config.EnvAPIKey,
			)
		}
		return NewOpenAIClient(cfg.APIKey, cfg.ExecutionModel, opts...), nil

	case "custom":
		if cfg.BaseURL == "" {
			return nil, errors.New("custom provider requires base_url")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.ExecutionModel, opts...), nil

	default:
		return nil, errors.Newf("unknown provider: %s", cfg.Provider)
	}
}
