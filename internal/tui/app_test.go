package tui

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/promptly/internal/config"
	"github.com/sant0-9/promptly/internal/llm"
	"github.com/sant0-9/promptly/internal/optimizer"
)

type fakeInvoker struct {
	mu    sync.Mutex
	users []string
	reply string
	err   error
}

func (f *fakeInvoker) Name() string { return "fake" }

func (f *fakeInvoker) Invoke(ctx context.Context, req llm.StructuredRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.users = append(f.users, req.User)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.reply), nil
}

func (f *fakeInvoker) lastPayload(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.users)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.users[len(f.users)-1]), &m))
	return m
}

const (
	replyPlain     = `{"ok":true,"optimizedPrompt":"Fix the failing test in parser.go.","clarifyingQuestions":[],"rejectReason":""}`
	replyQuestions = `{"ok":true,"optimizedPrompt":"Explain monads.","clarifyingQuestions":["Which language?","What level?"],"rejectReason":""}`
	replyRejected  = `{"ok":false,"optimizedPrompt":"","clarifyingQuestions":[],"rejectReason":"The input is random characters."}`
)

func newTestApp(t *testing.T, inv llm.Invoker) *App {
	t.Helper()
	t.Setenv(config.EnvConfigDir, t.TempDir())

	cfg := config.DefaultConfig()
	cfg.APIKey = "sk-test-1234"
	a := NewApp(Options{Config: cfg, Invoker: inv})
	a.Init()
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return a
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(a *App, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = a.Update(keyMsg(k))
	}
	return cmd
}

// finish runs the in-flight call synchronously and feeds the reply back.
func finish(t *testing.T, a *App) {
	t.Helper()
	require.NotNil(t, a.state.running, "no call in flight")
	msg := a.call(a.state.runCtx, a.state.gen, a.state.running)()
	a.Update(msg)
}

func submit(t *testing.T, a *App, prompt string) {
	t.Helper()
	a.state.prompt.SetValue(prompt)
	press(a, "ctrl+s")
	require.Equal(t, viewProcessing, a.view)
}

func TestInitWithoutConfigShowsSetup(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())
	a := NewApp(Options{})
	a.Init()
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, viewSetup, a.view)
	assert.Contains(t, a.View(), "OpenAI")
}

func TestInitWithKeyShowsForm(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyPlain})
	assert.Equal(t, viewForm, a.view)
	assert.NotNil(t, a.service)
	assert.Contains(t, a.View(), "GPT-5")
}

func TestRestoresLastTargetModel(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())
	cfg := config.DefaultConfig()
	cfg.APIKey = "sk"
	cfg.TargetModel = "mixtral"

	a := NewApp(Options{Config: cfg, Invoker: &fakeInvoker{}})
	assert.Equal(t, "mixtral", a.registry.All()[a.state.selectedModel].Key)
}

func TestEmptyPromptIsRejectedLocally(t *testing.T) {
	inv := &fakeInvoker{reply: replyPlain}
	a := newTestApp(t, inv)

	a.state.prompt.SetValue("   \n ")
	press(a, "ctrl+s")

	assert.Equal(t, viewForm, a.view)
	assert.Equal(t, "Prompt is required", a.state.formError)
	assert.Empty(t, inv.users)
	assert.Contains(t, a.View(), "Prompt is required")
}

func TestOptimizeFlow(t *testing.T) {
	inv := &fakeInvoker{reply: replyPlain}
	a := newTestApp(t, inv)

	// pick the second model
	press(a, "tab", "down", "enter")
	require.Equal(t, focusPrompt, a.state.formFocus)

	submit(t, a, "fix this plz")
	assert.Equal(t, optimizer.ModeOptimize, a.state.running.Mode())
	assert.Equal(t, "gpt-4o", a.state.config.TargetModel)
	assert.Contains(t, a.View(), "Optimizing")

	finish(t, a)
	require.Equal(t, viewDetail, a.view)
	assert.Equal(t, optimizer.Success{OptimizedPrompt: "Fix the failing test in parser.go.", ClarifyingQuestions: []string{}}, a.state.result)
	assert.Contains(t, a.View(), "Fix the failing test in parser.go.")
	assert.NotContains(t, a.View(), "Clarify your prompt")

	p := inv.lastPayload(t)
	assert.Equal(t, "fix this plz", p["initialPrompt"])
	assert.Equal(t, "gpt-4o", p["targetModel"].(map[string]any)["key"])
}

func TestCancelDropsLateReply(t *testing.T) {
	inv := &fakeInvoker{reply: replyPlain}
	a := newTestApp(t, inv)

	submit(t, a, "fix this plz")
	ctx, gen, req := a.state.runCtx, a.state.gen, a.state.running

	press(a, "esc")
	assert.Equal(t, viewForm, a.view)
	assert.Nil(t, a.state.running)
	assert.Error(t, ctx.Err(), "context cancelled")
	assert.Equal(t, "fix this plz", a.state.prompt.Value(), "prompt kept")

	a.Update(a.call(ctx, gen, req)())
	assert.Equal(t, viewForm, a.view)
	assert.Nil(t, a.state.result)
	assert.Nil(t, a.state.err)
}

func TestNewCallSupersedesOld(t *testing.T) {
	inv := &fakeInvoker{reply: replyPlain}
	a := newTestApp(t, inv)

	submit(t, a, "first")
	oldCtx, oldGen, oldReq := a.state.runCtx, a.state.gen, a.state.running

	a.startRun(optimizer.Fresh{InitialPrompt: "second", TargetModel: "gpt-5"})
	assert.Error(t, oldCtx.Err())

	a.Update(a.call(oldCtx, oldGen, oldReq)())
	assert.Equal(t, viewProcessing, a.view, "stale reply ignored")

	finish(t, a)
	assert.Equal(t, viewDetail, a.view)
}

func TestClarifyFlow(t *testing.T) {
	inv := &fakeInvoker{reply: replyQuestions}
	a := newTestApp(t, inv)

	submit(t, a, "explain monads")
	finish(t, a)
	require.Equal(t, viewDetail, a.view)
	assert.Contains(t, a.View(), "Which language?")
	assert.Contains(t, a.View(), "Clarify your prompt")

	press(a, "a")
	require.Equal(t, viewClarify, a.view)
	require.Len(t, a.state.answers, 2)

	press(a, "ctrl+s")
	assert.Equal(t, viewClarify, a.view)
	assert.Equal(t, "Please answer at least one question.", a.state.clarifyError)

	press(a, "tab")
	a.state.answers[1].SetValue("beginner")
	inv.reply = replyPlain
	press(a, "ctrl+s")
	require.Equal(t, viewProcessing, a.view)
	assert.Equal(t, optimizer.ModeImprove, a.state.running.Mode())

	finish(t, a)
	assert.Equal(t, viewDetail, a.view)

	p := inv.lastPayload(t)
	assert.Equal(t, "explain monads", p["initialPrompt"])
	assert.Equal(t, "Explain monads.", p["currentOptimizedPrompt"])
	assert.Equal(t, []any{
		map[string]any{"question": "Which language?", "answer": ""},
		map[string]any{"question": "What level?", "answer": "beginner"},
	}, p["clarifications"])
}

func TestClarifyUnavailableWithoutQuestions(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyPlain})
	submit(t, a, "fix this plz")
	finish(t, a)

	press(a, "a")
	assert.Equal(t, viewDetail, a.view)
}

func TestRetryFromDetail(t *testing.T) {
	inv := &fakeInvoker{reply: replyPlain}
	a := newTestApp(t, inv)
	submit(t, a, "fix this plz")
	finish(t, a)

	press(a, "r")
	require.Equal(t, viewProcessing, a.view)
	assert.Equal(t, optimizer.ModeRetry, a.state.running.Mode())
	finish(t, a)

	p := inv.lastPayload(t)
	assert.Equal(t, "Fix the failing test in parser.go.", p["currentOptimizedPrompt"])
	assert.NotEmpty(t, p["requestedChanges"])
}

func TestCancelRetryReturnsToDetail(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyPlain})
	submit(t, a, "fix this plz")
	finish(t, a)

	press(a, "r", "esc")
	assert.Equal(t, viewDetail, a.view)
}

func TestRejectionIsShown(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyRejected})
	submit(t, a, "asdkj qwe")
	finish(t, a)

	require.Equal(t, viewDetail, a.view)
	assert.Contains(t, a.View(), "The input is random characters.")

	press(a, "c")
	assert.Empty(t, a.state.flash, "nothing to copy")

	press(a, "e")
	assert.Equal(t, viewForm, a.view)
	assert.Equal(t, "asdkj qwe", a.state.prompt.Value())
}

func TestProviderErrorView(t *testing.T) {
	inv := &fakeInvoker{err: &llm.ProviderError{Status: 401, Message: "Incorrect API key provided"}}
	a := newTestApp(t, inv)
	submit(t, a, "fix this plz")
	finish(t, a)

	require.Equal(t, viewError, a.view)
	require.NotNil(t, a.state.err)
	assert.Equal(t, 401, a.state.err.status)
	assert.Equal(t, "Incorrect API key provided", a.state.err.message)
	assert.Equal(t, "OpenAI request failed", a.state.err.title)

	view := a.View()
	assert.Contains(t, view, "Incorrect API key provided")
	assert.Contains(t, view, "Status: 401")
	assert.Contains(t, view, "API key")

	inv.err = nil
	inv.reply = replyPlain
	press(a, "r")
	require.Equal(t, viewProcessing, a.view)
	finish(t, a)
	assert.Equal(t, viewDetail, a.view)
}

func TestSchemaViolationError(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: `{"ok":true,"optimizedPrompt":"","clarifyingQuestions":[],"rejectReason":""}`})
	submit(t, a, "fix this plz")
	finish(t, a)

	require.Equal(t, viewError, a.view)
	assert.Equal(t, "Unexpected response", a.state.err.title)
}

func TestCopy(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyPlain})
	var copied string
	a.copyText = func(s string) error {
		copied = s
		return nil
	}

	submit(t, a, "fix this plz")
	finish(t, a)

	cmd := press(a, "c")
	require.NotNil(t, cmd)
	a.Update(cmd())
	assert.Equal(t, "Fix the failing test in parser.go.", copied)
	assert.Equal(t, "Copied to clipboard", a.state.flash)

	a.copyText = func(string) error { return errors.New("no clipboard") }
	a.Update(press(a, "c")())
	assert.Contains(t, a.state.flash, "no clipboard")
}

func TestNewClearsSession(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyPlain})
	submit(t, a, "fix this plz")
	finish(t, a)

	press(a, "n")
	assert.Equal(t, viewForm, a.view)
	assert.Empty(t, a.state.prompt.Value())
	assert.Nil(t, a.state.result)
}

func TestHelpAndSettingsReturn(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyPlain})

	a.Update(tea.KeyMsg{Type: tea.KeyF1})
	require.Equal(t, viewHelp, a.view)
	assert.Contains(t, a.View(), "Keyboard Shortcuts")
	press(a, "esc")
	assert.Equal(t, viewForm, a.view)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.Equal(t, viewSettings, a.view)
	assert.Contains(t, a.View(), "sk-t****")

	history := a.state.config.SaveHistory
	press(a, "h")
	assert.Equal(t, !history, a.state.config.SaveHistory)

	press(a, "esc")
	assert.Equal(t, viewForm, a.view)
}

func TestSettingsSaveKeepsEnvKeyOutOfFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("api_key: sk-file-0000\n"), 0o600))
	t.Setenv(config.EnvAPIKey, "sk-env-secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.ApplyEnv()
	a := NewApp(Options{Config: cfg, Invoker: &fakeInvoker{reply: replyPlain}})
	a.Init()
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.Equal(t, viewSettings, a.view)
	cmd := press(a, "h")
	require.NotNil(t, cmd)
	msg, ok := cmd().(configSavedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-env-secret")
	assert.Contains(t, string(data), "sk-file-0000")
	assert.Contains(t, string(data), "save_history: false")
}

func TestSetupValidatesWithPing(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())
	inv := &pingInvoker{pingErr: &llm.ProviderError{Status: 401, Message: "invalid API key"}}
	a := NewApp(Options{Invoker: inv})
	a.Init()

	press(a, "enter")
	require.Equal(t, 1, a.state.setupStep)

	a.state.apiKeyInput.SetValue("sk-bad")
	cmd := press(a, "enter")
	require.NotNil(t, cmd)
	a.Update(cmd())
	assert.Equal(t, viewSetup, a.view)
	assert.Equal(t, "invalid API key", a.state.setupError)
	assert.False(t, config.Exists())

	inv.pingErr = nil
	cmd = press(a, "enter")
	a.Update(cmd())
	assert.Equal(t, viewForm, a.view)
	assert.True(t, config.Exists())
	assert.Equal(t, "sk-bad", a.state.config.APIKey)
}

type pingInvoker struct {
	fakeInvoker
	pingErr error
}

func (p *pingInvoker) Ping(context.Context) error { return p.pingErr }

func TestSuggestions(t *testing.T) {
	assert.Contains(t, suggestionsFor(&errorInfo{status: 401})[0], "API key")
	assert.Contains(t, suggestionsFor(&errorInfo{status: 429})[0], "rate limit")
	assert.Empty(t, suggestionsFor(&errorInfo{message: "disk on fire"}))
}

func TestViewsRenderAtSmallSizes(t *testing.T) {
	a := newTestApp(t, &fakeInvoker{reply: replyQuestions})
	a.Update(tea.WindowSizeMsg{Width: 30, Height: 10})

	for _, v := range []view{viewSetup, viewForm, viewProcessing, viewDetail, viewClarify, viewError, viewSettings, viewHelp} {
		a.view = v
		assert.NotPanics(t, func() { _ = a.View() })
	}
}

func TestPromptStats(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
	assert.Equal(t, "5 chars  ~2 tokens", promptStats("héllo"))
}
