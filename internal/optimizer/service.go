package optimizer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sant0-9/promptly/internal/llm"
	"github.com/sant0-9/promptly/internal/models"
	"github.com/sant0-9/promptly/internal/prompts"
)

// Outcome describes a completed call for a Recorder.
type Outcome struct {
	Mode          Mode
	TargetModel   string
	InitialPrompt string
	Result        Result
}

// Recorder receives every call that produced a Result.
type Recorder interface {
	Record(ctx context.Context, o Outcome) error
}

// Service runs optimize, improve and retry calls. It holds no per-call
// state and may be shared between goroutines.
type Service struct {
	registry *models.Registry
	invoker  llm.Invoker
	schema   *llm.Schema
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder stores outcomes. Recording failures are logged, never returned.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService checks its dependencies and compiles the response schema.
func NewService(reg *models.Registry, invoker llm.Invoker, opts ...Option) (*Service, error) {
	if reg == nil {
		return nil, errors.New("optimizer: nil model registry")
	}
	if invoker == nil {
		return nil, errors.New("optimizer: nil invoker")
	}

	schema, err := llm.ParseSchema(prompts.SchemaName, prompts.ResponseSchema())
	if err != nil {
		return nil, errors.Wrap(err, "optimizer: response schema")
	}

	s := &Service{
		registry: reg,
		invoker:  invoker,
		schema:   schema,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Registry returns the models requests are resolved against.
func (s *Service) Registry() *models.Registry {
	return s.registry
}

// Optimize runs a Fresh request.
func (s *Service) Optimize(ctx context.Context, initialPrompt, targetModel string) (Result, error) {
	return s.Run(ctx, Fresh{InitialPrompt: initialPrompt, TargetModel: targetModel})
}

// Improve runs an Improve request with the given clarifications.
func (s *Service) Improve(ctx context.Context, initialPrompt, targetModel, currentOptimizedPrompt string, clarifications []Clarification) (Result, error) {
	return s.Run(ctx, Improve{
		InitialPrompt:          initialPrompt,
		TargetModel:            targetModel,
		CurrentOptimizedPrompt: currentOptimizedPrompt,
		Clarifications:         clarifications,
	})
}

// Retry runs a Retry request against the current rewrite.
func (s *Service) Retry(ctx context.Context, initialPrompt, targetModel, currentOptimizedPrompt string) (Result, error) {
	return s.Run(ctx, Retry{
		InitialPrompt:          initialPrompt,
		TargetModel:            targetModel,
		CurrentOptimizedPrompt: currentOptimizedPrompt,
	})
}

// Run builds the payload for req, makes one model call and normalizes the answer.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	payload, err := Build(s.registry, req)
	if err != nil {
		return nil, err
	}

	user, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}

	log := s.logger.With(
		zap.String("mode", string(req.Mode())),
		zap.String("target_model", payload.TargetModel.Key),
		zap.String("contract_version", prompts.ContractVersion),
	)
	log.Debug("invoking model", zap.Int("payload_bytes", len(user)))
	start := time.Now()

	raw, err := s.invoker.Invoke(ctx, llm.StructuredRequest{
		System: prompts.Contract(),
		User:   string(user),
		Schema: s.schema,
		Label:  string(req.Mode()),
	})
	if err != nil {
		log.Debug("model call failed", zap.Error(err), zap.Duration("latency", time.Since(start)))
		return nil, errors.Wrapf(err, "%s", req.Mode())
	}

	decoded, err := llm.DecodeStrict[RawResponse](s.schema, raw)
	if err != nil {
		return nil, err
	}

	result, err := Normalize(decoded)
	if err != nil {
		log.Warn("contract violation", zap.Error(err))
		return nil, err
	}

	log.Info("model call completed",
		zap.Bool("ok", result.OK()),
		zap.Int("questions", questionCount(result)),
		zap.Duration("latency", time.Since(start)),
	)

	if s.recorder != nil {
		o := Outcome{
			Mode:          req.Mode(),
			TargetModel:   payload.TargetModel.Key,
			InitialPrompt: payload.InitialPrompt,
			Result:        result,
		}
		if err := s.recorder.Record(ctx, o); err != nil {
			log.Warn("failed to record outcome", zap.Error(err))
		}
	}

	return result, nil
}

func questionCount(r Result) int {
	if s, ok := r.(Success); ok {
		return len(s.ClarifyingQuestions)
	}
	return 0
}
