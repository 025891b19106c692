package llm

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sant0-9/promptly/internal/config"
)

func TestErrorInfo(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"nil", nil, 0, ""},
		{"provider", &ProviderError{Status: 429, Message: "slow down"}, 429, "slow down"},
		{"provider no message", &ProviderError{Status: 500}, 500, DefaultErrorMessage},
		{"wrapped provider", errors.Wrap(&ProviderError{Status: 401, Message: "bad key"}, "optimize"), 401, "bad key"},
		{"cancelled", errors.Wrap(context.Canceled, "aborted"), 0, "Request cancelled"},
		{"deadline", context.DeadlineExceeded, 0, "Request timed out"},
		{"schema", &SchemaViolationError{Reason: "no output text"}, 0, "The model returned an invalid response: no output text"},
		{"plain", errors.New("boom"), 0, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := ErrorInfo(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestProviderErrorFormatting(t *testing.T) {
	assert.Equal(t, "OpenAI error (status 404): not found", (&ProviderError{Status: 404, Message: "not found"}).Error())
	assert.Equal(t, DefaultErrorMessage, (&ProviderError{Message: DefaultErrorMessage}).Error())
	assert.True(t, errors.Is(&ProviderError{}, ErrProvider))
}

func TestNewInvoker(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewInvoker(cfg, zap.NewNop())
	assert.Error(t, err, "openai needs a key")

	cfg.APIKey = "sk"
	c, err := NewInvoker(cfg, zap.NewNop())
	assert.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, config.DefaultExecutionModel, c.Model())

	custom := &config.Config{Provider: "custom", BaseURL: "http://localhost:8080/v1", ExecutionModel: "local"}
	c, err = NewInvoker(custom, nil)
	assert.NoError(t, err)
	assert.Equal(t, "custom", c.Name())

	_, err = NewInvoker(&config.Config{Provider: "custom"}, nil)
	assert.Error(t, err)

	_, err = NewInvoker(&config.Config{Provider: "nope"}, nil)
	assert.Error(t, err)
}
