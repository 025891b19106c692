package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/sant0-9/promptly/internal/config"
	"github.com/sant0-9/promptly/internal/llm"
	"github.com/sant0-9/promptly/internal/models"
	"github.com/sant0-9/promptly/internal/optimizer"
)

type runDoneMsg struct {
	gen    int
	req    optimizer.Request
	result optimizer.Result
	err    error
}

type copiedMsg struct{ err error }
type configSavedMsg struct{ err error }
type setupCompleteMsg struct{}
type setupErrorMsg struct{ error }

// startRun cancels any call in flight and starts req.
func (a *App) startRun(req optimizer.Request) tea.Cmd {
	s := a.state
	if a.service == nil {
		a.showError("Not configured", errors.New("no API key configured"), nil)
		return nil
	}

	a.cancelRun()
	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	s.runCtx = ctx
	s.cancel = cancel
	s.running = req
	s.runStart = time.Now()
	s.flash = ""

	if a.view != viewProcessing {
		s.prevView = a.view
	}
	if s.prevView == viewClarify || s.prevView == viewError {
		s.prevView = viewDetail
		if s.result == nil {
			s.prevView = viewForm
		}
	}
	s.prompt.Blur()
	a.view = viewProcessing

	return tea.Batch(s.spinner.Tick, a.call(ctx, s.gen, req))
}

// call runs req on the service. The returned message carries gen so that
// replies to superseded calls can be recognised.
func (a *App) call(ctx context.Context, gen int, req optimizer.Request) tea.Cmd {
	svc := a.service
	return func() tea.Msg {
		res, err := svc.Run(ctx, req)
		return runDoneMsg{gen: gen, req: req, result: res, err: err}
	}
}

func (a *App) cancelRun() {
	s := a.state
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.runCtx = nil
		s.running = nil
		s.gen++
	}
}

func (a *App) handleRunDone(msg runDoneMsg) tea.Cmd {
	s := a.state
	if msg.gen != s.gen {
		a.logger.Debug("dropping stale reply", zap.Int("gen", msg.gen), zap.Int("current", s.gen))
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.runCtx = nil
	s.running = nil

	if msg.err != nil {
		a.showError(errorTitle(msg.err), msg.err, msg.req)
		return nil
	}

	s.result = msg.result
	s.err = nil
	if success, ok := msg.result.(optimizer.Success); ok {
		a.setDetailContent(success.OptimizedPrompt)
	}
	a.view = viewDetail
	return nil
}

func errorTitle(err error) string {
	switch {
	case errors.Is(err, models.ErrUnknownModel):
		return "Unknown target model"
	case errors.Is(err, llm.ErrProvider):
		return "OpenAI request failed"
	case errors.Is(err, llm.ErrSchemaViolation):
		return "Unexpected response"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	default:
		return "Something went wrong"
	}
}

func (a *App) copyCmd(text string) tea.Cmd {
	copyText := a.copyText
	return func() tea.Msg {
		return copiedMsg{err: copyText(text)}
	}
}

func (a *App) saveConfig() tea.Cmd {
	cfg := *a.state.config
	return func() tea.Msg {
		return configSavedMsg{err: cfg.Save()}
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// finishSetup checks the key against the provider before saving it.
func (a *App) finishSetup() tea.Cmd {
	cfg := *a.state.config
	override := a.invoker
	logger := a.logger
	return func() tea.Msg {
		var inv any = override
		if override == nil {
			client, err := llm.NewInvoker(&cfg, logger)
			if err != nil {
				return setupErrorMsg{err}
			}
			inv = client
		}

		if p, ok := inv.(pinger); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				return setupErrorMsg{err}
			}
		}

		if err := cfg.Save(); err != nil {
			return setupErrorMsg{err}
		}
		return setupCompleteMsg{}
	}
}

func (a *App) handleSetupKey(msg tea.KeyMsg) tea.Cmd {
	s := a.state
	switch s.setupStep {
	case 0: // Provider selection
		switch msg.String() {
		case "up", "k":
			if s.selectedProvider > 0 {
				s.selectedProvider--
			}
		case "down", "j":
			if s.selectedProvider < len(config.Providers)-1 {
				s.selectedProvider++
			}
		case "enter":
			provider := config.Providers[s.selectedProvider]
			s.config.Provider = provider.ID
			s.setupStep = 1
			s.setupError = ""
			s.apiKeyInput.Reset()
			if provider.NeedsAPIKey {
				s.apiKeyInput.EchoMode = textinput.EchoPassword
				s.apiKeyInput.Placeholder = "Paste your API key here..."
			} else {
				s.apiKeyInput.EchoMode = textinput.EchoNormal
				s.apiKeyInput.Placeholder = "http://localhost:8080/v1"
			}
			return s.apiKeyInput.Focus()
		case "esc":
			a.quitting = true
			return tea.Quit
		}

	case 1: // API key or base URL entry
		switch msg.String() {
		case "esc":
			s.setupStep = 0
			s.setupError = ""
			s.apiKeyInput.Reset()
			return nil
		case "enter":
			value := s.apiKeyInput.Value()
			if value == "" {
				s.setupError = "A value is required"
				return nil
			}
			if provider := config.GetProvider(s.config.Provider); provider != nil && provider.NeedsAPIKey {
				s.config.APIKey = value
			} else {
				s.config.BaseURL = value
			}
			s.setupError = "Checking..."
			return a.finishSetup()
		}
		var cmd tea.Cmd
		s.apiKeyInput, cmd = s.apiKeyInput.Update(msg)
		return cmd
	}

	return nil
}

func (a *App) handleSettingsKey(msg tea.KeyMsg) tea.Cmd {
	s := a.state

	if s.settingsMode == "apikey" {
		switch msg.String() {
		case "esc":
			s.settingsMode = ""
			s.apiKeyInput.Reset()
			return nil
		case "enter":
			if v := s.apiKeyInput.Value(); v != "" {
				s.config.APIKey = v
			}
			s.apiKeyInput.Reset()
			s.settingsMode = ""
			if err := a.buildService(); err != nil {
				a.showError("Configuration error", err, nil)
				return nil
			}
			return a.saveConfig()
		}
		var cmd tea.Cmd
		s.apiKeyInput, cmd = s.apiKeyInput.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "esc", "ctrl+o":
		a.view = s.returnTo
		if a.view == viewForm {
			return s.prompt.Focus()
		}
	case "k":
		s.settingsMode = "apikey"
		s.apiKeyInput.EchoMode = textinput.EchoPassword
		s.apiKeyInput.Placeholder = "Paste your API key here..."
		return s.apiKeyInput.Focus()
	case "h":
		s.config.SaveHistory = !s.config.SaveHistory
		if a.service != nil {
			if err := a.buildService(); err != nil {
				a.showError("Configuration error", err, nil)
				return nil
			}
		}
		return a.saveConfig()
	case "r":
		a.cancelRun()
		s.needsSetup = true
		s.setupStep = 0
		s.setupError = ""
		a.view = viewSetup
		return textinput.Blink
	}
	return nil
}
