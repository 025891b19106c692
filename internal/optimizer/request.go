package optimizer

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sant0-9/promptly/internal/models"
	"github.com/sant0-9/promptly/internal/prompts"
)

// Mode names the call variant.
type Mode string

const (
	ModeOptimize Mode = "optimize"
	ModeImprove  Mode = "improve"
	ModeRetry    Mode = "retry"
)

var (
	ErrEmptyPrompt      = errors.New("initial prompt is required")
	ErrEmptyCurrent     = errors.New("current optimized prompt is required")
	ErrNoClarifications = errors.New("at least one answered clarification is required")
)

// Clarification is a question the model asked and the author's answer.
type Clarification struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Payload is the user message of a call, serialized as JSON.
type Payload struct {
	InitialPrompt          string            `json:"initialPrompt"`
	TargetModel            models.Descriptor `json:"targetModel"`
	CurrentOptimizedPrompt string            `json:"currentOptimizedPrompt,omitempty"`
	Clarifications         []Clarification   `json:"clarifications,omitempty"`
	RequestedChanges       string            `json:"requestedChanges,omitempty"`
}

// Request is one of Fresh, Improve or Retry.
type Request interface {
	Mode() Mode
	Target() string
	Initial() string

	payload(target models.Descriptor) (Payload, error)
}

// Fresh is a first rewrite with no prior output.
type Fresh struct {
	InitialPrompt string
	TargetModel   string
}

// Improve refines a previous rewrite using the author's answers.
type Improve struct {
	InitialPrompt          string
	TargetModel            string
	CurrentOptimizedPrompt string
	Clarifications         []Clarification
}

// Retry asks for another attempt at a previous rewrite.
type Retry struct {
	InitialPrompt          string
	TargetModel            string
	CurrentOptimizedPrompt string
}

func (Fresh) Mode() Mode   { return ModeOptimize }
func (Improve) Mode() Mode { return ModeImprove }
func (Retry) Mode() Mode   { return ModeRetry }

func (r Fresh) Target() string   { return r.TargetModel }
func (r Improve) Target() string { return r.TargetModel }
func (r Retry) Target() string   { return r.TargetModel }

func (r Fresh) Initial() string   { return r.InitialPrompt }
func (r Improve) Initial() string { return r.InitialPrompt }
func (r Retry) Initial() string   { return r.InitialPrompt }

func (r Fresh) payload(target models.Descriptor) (Payload, error) {
	return Payload{
		InitialPrompt: r.InitialPrompt,
		TargetModel:   target,
	}, nil
}

func (r Improve) payload(target models.Descriptor) (Payload, error) {
	if blank(r.CurrentOptimizedPrompt) {
		return Payload{}, ErrEmptyCurrent
	}
	answered := 0
	for _, c := range r.Clarifications {
		if !blank(c.Answer) {
			answered++
		}
	}
	if answered == 0 {
		return Payload{}, ErrNoClarifications
	}

	clarifications := make([]Clarification, len(r.Clarifications))
	copy(clarifications, r.Clarifications)

	return Payload{
		InitialPrompt:          r.InitialPrompt,
		TargetModel:            target,
		CurrentOptimizedPrompt: r.CurrentOptimizedPrompt,
		Clarifications:         clarifications,
	}, nil
}

func (r Retry) payload(target models.Descriptor) (Payload, error) {
	if blank(r.CurrentOptimizedPrompt) {
		return Payload{}, ErrEmptyCurrent
	}
	return Payload{
		InitialPrompt:          r.InitialPrompt,
		TargetModel:            target,
		CurrentOptimizedPrompt: r.CurrentOptimizedPrompt,
		RequestedChanges:       prompts.RetryRequestedChanges(),
	}, nil
}

// Build resolves the target model and assembles the payload for req.
// The initial prompt is carried verbatim. Build is deterministic and does
// no I/O, so an unknown model is reported before any call is made.
func Build(reg *models.Registry, req Request) (Payload, error) {
	if req == nil {
		return Payload{}, errors.New("nil request")
	}
	if blank(req.Initial()) {
		return Payload{}, ErrEmptyPrompt
	}

	target, err := reg.Lookup(req.Target())
	if err != nil {
		return Payload{}, err
	}

	p, err := req.payload(target)
	if err != nil {
		return Payload{}, errors.Wrapf(err, "%s request", req.Mode())
	}
	return p, nil
}

// AnsweredOnly drops clarifications the author left blank.
func AnsweredOnly(in []Clarification) []Clarification {
	out := make([]Clarification, 0, len(in))
	for _, c := range in {
		if !blank(c.Answer) {
			out = append(out, c)
		}
	}
	return out
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
