package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// OpenAIClient calls the Responses API with a strict json_schema text format.
type OpenAIClient struct {
	name       string
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

type OpenAIOption func(*OpenAIClient)

func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAIClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit paces calls to at most perMinute requests per minute.
// Zero disables pacing.
func WithRateLimit(perMinute int) OpenAIOption {
	return func(c *OpenAIClient) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

func WithLogger(l *zap.Logger) OpenAIOption {
	return func(c *OpenAIClient) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithName(name string) OpenAIOption {
	return func(c *OpenAIClient) {
		if name != "" {
			c.name = name
		}
	}
}

func NewOpenAIClient(apiKey, model string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		name:    "openai",
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (o *OpenAIClient) Name() string {
	return o.name
}

func (o *OpenAIClient) Model() string {
	return o.model
}

func (o *OpenAIClient) Invoke(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	if req.Schema == nil {
		return nil, errors.New("structured request without schema")
	}

	body, err := json.Marshal(responsesRequest{
		Model: o.model,
		Input: []inputItem{
			{Role: "system", Content: []inputContent{{Type: "input_text", Text: req.System}}},
			{Role: "user", Content: []inputContent{{Type: "input_text", Text: req.User}}},
		},
		Text: textOptions{Format: textFormat{
			Type:   "json_schema",
			Name:   req.Schema.Name,
			Schema: req.Schema.Raw(),
			Strict: true,
		}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}
	}

	log := o.logger.With(
		zap.String("provider", o.name),
		zap.String("model", o.model),
		zap.String("label", req.Label),
	)
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Debug("request aborted", zap.Error(ctxErr))
			return nil, errors.Wrap(ctxErr, "OpenAI request aborted")
		}
		log.Warn("request failed", zap.Error(err))
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		pe := &ProviderError{Status: resp.StatusCode, Message: providerMessage(data)}
		log.Warn("provider error",
			zap.Int("status", pe.Status),
			zap.String("message", pe.Message),
			zap.Duration("latency", time.Since(start)),
		)
		return nil, pe
	}

	var apiResp responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Wrap(ctxErr, "OpenAI request aborted")
		}
		return nil, &ProviderError{Status: resp.StatusCode, Message: "could not decode OpenAI response", cause: err}
	}

	text, err := apiResp.outputText()
	if err != nil {
		log.Warn("unusable output", zap.Error(err), zap.String("status", apiResp.Status))
		return nil, err
	}

	if err := req.Schema.Check([]byte(text)); err != nil {
		log.Warn("schema check failed", zap.Error(err))
		return nil, err
	}

	log.Debug("request completed",
		zap.Duration("latency", time.Since(start)),
		zap.Int("input_tokens", apiResp.Usage.InputTokens),
		zap.Int("output_tokens", apiResp.Usage.OutputTokens),
	)
	return json.RawMessage(text), nil
}

// Ping checks that the endpoint is reachable and the key is accepted.
func (o *OpenAIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		pe := transportError(err)
		pe.Message = "cannot connect to OpenAI API: " + pe.Message
		return pe
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &ProviderError{Status: resp.StatusCode, Message: "invalid API key"}
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderError{Status: resp.StatusCode, Message: providerMessage(data)}
	}
	return nil
}

// transportError keeps the cause's text so the user sees why the call failed.
func transportError(err error) *ProviderError {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = DefaultErrorMessage
	}
	return &ProviderError{Message: msg, cause: err}
}

// providerMessage pulls error.message out of an error body.
func providerMessage(body []byte) string {
	var e struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error != nil && strings.TrimSpace(e.Error.Message) != "" {
			return strings.TrimSpace(e.Error.Message)
		}
		if strings.TrimSpace(e.Message) != "" {
			return strings.TrimSpace(e.Message)
		}
	}
	return DefaultErrorMessage
}

type responsesRequest struct {
	Model string      `json:"model"`
	Input []inputItem `json:"input"`
	Text  textOptions `json:"text"`
}

type inputItem struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type inputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type textOptions struct {
	Format textFormat `json:"format"`
}

type textFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type responsesResponse struct {
	Status            string       `json:"status"`
	Output            []outputItem `json:"output"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	Usage Usage `json:"usage"`
}

type outputItem struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content []outputContent `json:"content"`
}

type outputContent struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Refusal string `json:"refusal"`
}

// outputText returns the concatenated output_text of the message items.
func (r *responsesResponse) outputText() (string, error) {
	if r.Status == "incomplete" {
		reason := "unknown"
		if r.IncompleteDetails != nil && r.IncompleteDetails.Reason != "" {
			reason = r.IncompleteDetails.Reason
		}
		return "", schemaViolation("response incomplete: %s", reason)
	}

	var sb strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			switch c.Type {
			case "output_text":
				sb.WriteString(c.Text)
			case "refusal":
				return "", schemaViolation("model refused: %s", c.Refusal)
			}
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", schemaViolation("no output text")
	}
	return sb.String(), nil
}
