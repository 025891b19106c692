package optimizer

import (
	"encoding/json"

	"github.com/sant0-9/promptly/internal/llm"
)

// RawResponse is the model's answer after the schema check.
type RawResponse struct {
	OK                  bool     `json:"ok"`
	OptimizedPrompt     string   `json:"optimizedPrompt"`
	ClarifyingQuestions []string `json:"clarifyingQuestions"`
	RejectReason        string   `json:"rejectReason"`
}

// Result is either a Success or a Rejection.
type Result interface {
	OK() bool
	isResult()
}

// Success carries a rewritten prompt and any questions the model wants answered.
type Success struct {
	OptimizedPrompt     string
	ClarifyingQuestions []string
}

// Rejection means the input could not be interpreted as a prompt.
// It is a normal outcome, not an error.
type Rejection struct {
	RejectReason string
}

func (Success) OK() bool   { return true }
func (Rejection) OK() bool { return false }

func (Success) isResult()   {}
func (Rejection) isResult() {}

// HasQuestions reports whether the model asked anything back.
func (s Success) HasQuestions() bool {
	return len(s.ClarifyingQuestions) > 0
}

// MarshalJSON writes the success shape, always with a clarifyingQuestions array.
func (s Success) MarshalJSON() ([]byte, error) {
	questions := s.ClarifyingQuestions
	if questions == nil {
		questions = []string{}
	}
	return json.Marshal(struct {
		OK                  bool     `json:"ok"`
		OptimizedPrompt     string   `json:"optimizedPrompt"`
		ClarifyingQuestions []string `json:"clarifyingQuestions"`
	}{true, s.OptimizedPrompt, questions})
}

// MarshalJSON writes ok=false with the reason.
func (r Rejection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OK           bool   `json:"ok"`
		RejectReason string `json:"rejectReason"`
	}{false, r.RejectReason})
}

// Normalize maps raw to a Result. A success with a blank prompt or a
// rejection with a blank reason breaks the output contract and is reported
// as *llm.SchemaViolationError instead of being passed on.
func Normalize(raw RawResponse) (Result, error) {
	if !raw.OK {
		if blank(raw.RejectReason) {
			return nil, &llm.SchemaViolationError{Reason: "rejection without rejectReason"}
		}
		return Rejection{RejectReason: raw.RejectReason}, nil
	}

	if blank(raw.OptimizedPrompt) {
		return nil, &llm.SchemaViolationError{Reason: "ok response with empty optimizedPrompt"}
	}

	questions := raw.ClarifyingQuestions
	if questions == nil {
		questions = []string{}
	}
	return Success{OptimizedPrompt: raw.OptimizedPrompt, ClarifyingQuestions: questions}, nil
}
