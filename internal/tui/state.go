package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sant0-9/promptly/internal/config"
	"github.com/sant0-9/promptly/internal/models"
	"github.com/sant0-9/promptly/internal/optimizer"
)

type focus int

const (
	focusPrompt focus = iota
	focusModels
)

type state struct {
	// Config
	config     *config.Config
	needsSetup bool

	// Setup wizard state
	setupStep        int
	selectedProvider int
	apiKeyInput      textinput.Model
	setupError       string

	// Form
	selectedModel int
	prompt        textarea.Model
	formFocus     focus
	formError     string

	// In-flight call. gen increases with every call; a reply whose gen
	// does not match is stale and dropped.
	gen      int
	cancel   context.CancelFunc
	runCtx   context.Context
	running  optimizer.Request
	runStart time.Time
	spinner  spinner.Model
	prevView view

	// Session: the prompt being worked on and the latest accepted rewrite.
	initialPrompt string
	targetModel   models.Descriptor
	result        optimizer.Result
	detail        viewport.Model
	flash         string

	// Clarify
	answers      []textinput.Model
	answerFocus  int
	clarifyError string

	// Error
	err     *errorInfo
	lastReq optimizer.Request

	// Settings and help return here on esc.
	settingsMode string
	returnTo     view
}

type errorInfo struct {
	title   string
	message string
	status  int
}

func newState() *state {
	apiKey := textinput.New()
	apiKey.Placeholder = "Paste your API key here..."
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.CharLimit = 200
	apiKey.Width = 50

	prompt := textarea.New()
	prompt.Placeholder = "Paste or type the prompt you want to improve..."
	prompt.ShowLineNumbers = false
	prompt.CharLimit = 0
	prompt.SetWidth(60)
	prompt.SetHeight(10)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = styleSpinner

	return &state{
		apiKeyInput: apiKey,
		prompt:      prompt,
		spinner:     sp,
		detail:      viewport.New(70, 15),
	}
}

func newAnswerInput(width int) textinput.Model {
	in := textinput.New()
	in.Placeholder = "Your answer (optional)"
	in.CharLimit = 1000
	in.Width = width
	return in
}
