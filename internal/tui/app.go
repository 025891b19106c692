package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sant0-9/promptly/internal/config"
	"github.com/sant0-9/promptly/internal/llm"
	"github.com/sant0-9/promptly/internal/models"
	"github.com/sant0-9/promptly/internal/optimizer"
)

type view int

const (
	viewSetup view = iota
	viewForm
	viewProcessing
	viewDetail
	viewClarify
	viewError
	viewSettings
	viewHelp
)

// Options configures the interactive app.
type Options struct {
	// Config is nil when no config file exists yet; the app starts in setup.
	Config   *config.Config
	Registry *models.Registry
	Logger   *zap.Logger

	// Recorder receives outcomes while save_history is on.
	Recorder optimizer.Recorder

	// Invoker replaces the client built from Config.
	Invoker llm.Invoker
}

type App struct {
	width    int
	height   int
	view     view
	state    *state
	quitting bool

	registry *models.Registry
	logger   *zap.Logger
	recorder optimizer.Recorder
	invoker  llm.Invoker
	service  *optimizer.Service
	copyText func(string) error
}

func NewApp(opts Options) *App {
	s := newState()

	if opts.Config == nil {
		s.needsSetup = true
		s.config = config.DefaultConfig()
	} else {
		s.config = opts.Config
	}

	reg := opts.Registry
	if reg == nil {
		reg = models.Builtin()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if i := reg.Index(s.config.TargetModel); i >= 0 {
		s.selectedModel = i
	}

	return &App{
		view:     viewForm,
		state:    s,
		registry: reg,
		logger:   logger,
		recorder: opts.Recorder,
		invoker:  opts.Invoker,
		copyText: clipboard.WriteAll,
	}
}

func (a *App) Init() tea.Cmd {
	if a.state.needsSetup || !a.state.config.HasAPIKey() {
		a.state.needsSetup = true
		a.view = viewSetup
		return tea.Batch(tea.WindowSize(), textinput.Blink)
	}

	if err := a.buildService(); err != nil {
		a.showError("Configuration error", err, nil)
		return tea.WindowSize()
	}

	a.view = viewForm
	a.state.prompt.Focus()
	return tea.Batch(tea.WindowSize(), textarea.Blink)
}

func (a *App) buildService() error {
	inv := a.invoker
	if inv == nil {
		client, err := llm.NewInvoker(a.state.config, a.logger)
		if err != nil {
			return err
		}
		inv = client
	}

	opts := []optimizer.Option{optimizer.WithLogger(a.logger)}
	if a.state.config.SaveHistory && a.recorder != nil {
		opts = append(opts, optimizer.WithRecorder(a.recorder))
	}

	svc, err := optimizer.NewService(a.registry, inv, opts...)
	if err != nil {
		return err
	}
	a.service = svc
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()

	case spinner.TickMsg:
		if a.view != viewProcessing {
			return a, nil
		}
		var cmd tea.Cmd
		a.state.spinner, cmd = a.state.spinner.Update(msg)
		return a, cmd

	case runDoneMsg:
		return a, a.handleRunDone(msg)

	case copiedMsg:
		if msg.err != nil {
			a.state.flash = "Copy failed: " + msg.err.Error()
		} else {
			a.state.flash = "Copied to clipboard"
		}
		return a, nil

	case setupCompleteMsg:
		a.state.needsSetup = false
		a.state.setupError = ""
		a.state.setupStep = 0
		a.state.apiKeyInput.Reset()
		if err := a.buildService(); err != nil {
			a.showError("Configuration error", err, nil)
			return a, nil
		}
		a.enterForm(false)
		return a, textarea.Blink

	case setupErrorMsg:
		_, message := llm.ErrorInfo(msg.error)
		a.state.setupError = message
		return a, nil

	case configSavedMsg:
		if msg.err != nil {
			a.logger.Warn("failed to save config", zap.Error(msg.err))
		}
		return a, nil
	}

	// Blink and other messages go to whichever input is active.
	switch a.view {
	case viewSetup:
		var cmd tea.Cmd
		a.state.apiKeyInput, cmd = a.state.apiKeyInput.Update(msg)
		cmds = append(cmds, cmd)
	case viewSettings:
		if a.state.settingsMode == "apikey" {
			var cmd tea.Cmd
			a.state.apiKeyInput, cmd = a.state.apiKeyInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	case viewForm:
		var cmd tea.Cmd
		a.state.prompt, cmd = a.state.prompt.Update(msg)
		cmds = append(cmds, cmd)
	case viewClarify:
		if len(a.state.answers) > 0 {
			var cmd tea.Cmd
			i := a.state.answerFocus
			a.state.answers[i], cmd = a.state.answers[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Quit) {
		a.cancelRun()
		a.quitting = true
		return tea.Quit
	}

	switch a.view {
	case viewSetup:
		return a.handleSetupKey(msg)
	case viewForm:
		return a.handleFormKey(msg)
	case viewProcessing:
		if key.Matches(msg, keys.Back) {
			a.cancelRun()
			a.view = a.state.prevView
			if a.view == viewForm {
				a.state.prompt.Focus()
			}
		}
		return nil
	case viewDetail:
		return a.handleDetailKey(msg)
	case viewClarify:
		return a.handleClarifyKey(msg)
	case viewError:
		return a.handleErrorKey(msg)
	case viewSettings:
		return a.handleSettingsKey(msg)
	case viewHelp:
		if key.Matches(msg, keys.Back) || key.Matches(msg, keys.Help) {
			a.view = a.state.returnTo
			if a.view == viewForm {
				return a.state.prompt.Focus()
			}
		}
		return nil
	}
	return nil
}

func (a *App) openOverlay(v view) {
	a.state.returnTo = a.view
	a.state.settingsMode = ""
	a.state.prompt.Blur()
	a.view = v
}

func (a *App) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	s := a.state

	switch {
	case key.Matches(msg, keys.Back):
		a.quitting = true
		return tea.Quit

	case key.Matches(msg, keys.Submit):
		return a.submitForm()

	case key.Matches(msg, keys.Tab), key.Matches(msg, keys.ShiftTab):
		if s.formFocus == focusPrompt {
			s.formFocus = focusModels
			s.prompt.Blur()
			return nil
		}
		s.formFocus = focusPrompt
		return s.prompt.Focus()

	case key.Matches(msg, keys.Settings):
		a.openOverlay(viewSettings)
		return nil

	case msg.String() == "f1":
		a.openOverlay(viewHelp)
		return nil
	}

	if s.formFocus == focusModels {
		switch {
		case key.Matches(msg, keys.Up):
			if s.selectedModel > 0 {
				s.selectedModel--
			}
		case key.Matches(msg, keys.Down):
			if s.selectedModel < a.registry.Len()-1 {
				s.selectedModel++
			}
		case key.Matches(msg, keys.Help):
			a.openOverlay(viewHelp)
		case key.Matches(msg, keys.Enter):
			s.formFocus = focusPrompt
			return s.prompt.Focus()
		}
		return nil
	}

	s.formError = ""
	var cmd tea.Cmd
	s.prompt, cmd = s.prompt.Update(msg)
	return cmd
}

func (a *App) submitForm() tea.Cmd {
	s := a.state
	initial := s.prompt.Value()
	if strings.TrimSpace(initial) == "" {
		s.formError = "Prompt is required"
		return nil
	}
	s.formError = ""

	target := a.registry.All()[s.selectedModel]
	s.initialPrompt = initial
	s.targetModel = target

	var cmds []tea.Cmd
	if s.config.TargetModel != target.Key {
		s.config.TargetModel = target.Key
		cmds = append(cmds, a.saveConfig())
	}
	cmds = append(cmds, a.startRun(optimizer.Fresh{InitialPrompt: initial, TargetModel: target.Key}))
	return tea.Batch(cmds...)
}

func (a *App) handleDetailKey(msg tea.KeyMsg) tea.Cmd {
	s := a.state
	success, isSuccess := s.result.(optimizer.Success)

	switch {
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Edit):
		a.enterForm(false)
		return textarea.Blink

	case key.Matches(msg, keys.New):
		a.enterForm(true)
		return textarea.Blink

	case key.Matches(msg, keys.Copy):
		if !isSuccess {
			return nil
		}
		return a.copyCmd(success.OptimizedPrompt)

	case key.Matches(msg, keys.Clarify):
		if !isSuccess || !success.HasQuestions() {
			return nil
		}
		return a.enterClarify(success.ClarifyingQuestions)

	case key.Matches(msg, keys.Retry):
		if isSuccess {
			return a.startRun(optimizer.Retry{
				InitialPrompt:          s.initialPrompt,
				TargetModel:            s.targetModel.Key,
				CurrentOptimizedPrompt: success.OptimizedPrompt,
			})
		}
		return a.startRun(optimizer.Fresh{InitialPrompt: s.initialPrompt, TargetModel: s.targetModel.Key})

	case key.Matches(msg, keys.Help):
		a.openOverlay(viewHelp)
		return nil

	case key.Matches(msg, keys.Settings):
		a.openOverlay(viewSettings)
		return nil
	}

	var cmd tea.Cmd
	s.detail, cmd = s.detail.Update(msg)
	return cmd
}

func (a *App) enterClarify(questions []string) tea.Cmd {
	s := a.state
	s.answers = make([]textinput.Model, len(questions))
	for i := range questions {
		s.answers[i] = newAnswerInput(a.contentWidth() - 4)
	}
	s.answerFocus = 0
	s.clarifyError = ""
	a.view = viewClarify
	return s.answers[0].Focus()
}

func (a *App) handleClarifyKey(msg tea.KeyMsg) tea.Cmd {
	s := a.state

	switch {
	case key.Matches(msg, keys.Back):
		a.view = viewDetail
		return nil

	case key.Matches(msg, keys.Submit):
		return a.submitClarifications()

	case key.Matches(msg, keys.Tab), msg.String() == "down":
		return a.focusAnswer(s.answerFocus + 1)

	case key.Matches(msg, keys.ShiftTab), msg.String() == "up":
		return a.focusAnswer(s.answerFocus - 1)

	case key.Matches(msg, keys.Enter):
		if s.answerFocus == len(s.answers)-1 {
			return a.submitClarifications()
		}
		return a.focusAnswer(s.answerFocus + 1)
	}

	s.clarifyError = ""
	var cmd tea.Cmd
	s.answers[s.answerFocus], cmd = s.answers[s.answerFocus].Update(msg)
	return cmd
}

func (a *App) focusAnswer(i int) tea.Cmd {
	s := a.state
	n := len(s.answers)
	if n == 0 {
		return nil
	}
	i = (i%n + n) % n
	s.answers[s.answerFocus].Blur()
	s.answerFocus = i
	return s.answers[i].Focus()
}

func (a *App) submitClarifications() tea.Cmd {
	s := a.state
	success, ok := s.result.(optimizer.Success)
	if !ok {
		return nil
	}

	all := make([]optimizer.Clarification, len(s.answers))
	for i, in := range s.answers {
		all[i] = optimizer.Clarification{
			Question: success.ClarifyingQuestions[i],
			Answer:   strings.TrimSpace(in.Value()),
		}
	}
	if len(optimizer.AnsweredOnly(all)) == 0 {
		s.clarifyError = "Please answer at least one question."
		return nil
	}

	return a.startRun(optimizer.Improve{
		InitialPrompt:          s.initialPrompt,
		TargetModel:            s.targetModel.Key,
		CurrentOptimizedPrompt: success.OptimizedPrompt,
		Clarifications:         all,
	})
}

func (a *App) handleErrorKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Retry):
		if a.state.lastReq != nil && a.service != nil {
			return a.startRun(a.state.lastReq)
		}
	case key.Matches(msg, keys.New):
		a.enterForm(true)
		return textarea.Blink
	case msg.String() == "s", key.Matches(msg, keys.Settings):
		a.openOverlay(viewSettings)
	case key.Matches(msg, keys.Back):
		if a.state.result != nil {
			a.view = viewDetail
			return nil
		}
		a.enterForm(false)
		return textarea.Blink
	}
	return nil
}

// enterForm shows the form. clear drops the prompt and the current result.
func (a *App) enterForm(clear bool) {
	s := a.state
	if clear {
		s.prompt.Reset()
		s.result = nil
		s.initialPrompt = ""
		s.flash = ""
	}
	s.formError = ""
	s.formFocus = focusPrompt
	s.prompt.Focus()
	a.view = viewForm
}

func (a *App) showError(title string, err error, req optimizer.Request) {
	status, message := llm.ErrorInfo(err)
	a.state.err = &errorInfo{title: title, message: message, status: status}
	a.state.lastReq = req
	a.view = viewError
}

func (a *App) resize() {
	w := a.contentWidth()
	a.state.prompt.SetWidth(w - 4)

	h := a.height - 16
	if h < 5 {
		h = 5
	}
	a.state.detail.Width = w - 2
	a.state.detail.Height = h
	if success, ok := a.state.result.(optimizer.Success); ok {
		a.setDetailContent(success.OptimizedPrompt)
	}
	for i := range a.state.answers {
		a.state.answers[i].Width = w - 4
	}
}

func (a *App) contentWidth() int {
	if a.width == 0 {
		return 70
	}
	return max(20, min(80, a.width-4))
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	switch a.view {
	case viewSetup:
		return a.renderSetup()
	case viewForm:
		return a.renderForm()
	case viewProcessing:
		return a.renderProcessing()
	case viewDetail:
		return a.renderDetail()
	case viewClarify:
		return a.renderClarify()
	case viewError:
		return a.renderError()
	case viewSettings:
		return a.renderSettings()
	case viewHelp:
		return a.renderHelp()
	default:
		return a.renderForm()
	}
}
