package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sant0-9/promptly/internal/config"
	"github.com/sant0-9/promptly/internal/history"
	"github.com/sant0-9/promptly/internal/llm"
	"github.com/sant0-9/promptly/internal/logging"
	"github.com/sant0-9/promptly/internal/models"
	"github.com/sant0-9/promptly/internal/optimizer"
	"github.com/sant0-9/promptly/internal/tui"
	"github.com/sant0-9/promptly/internal/tui/styles"
)

var version = "dev"

// errRejected is returned when the model declined the prompt. It exits with 2.
var errRejected = errors.New("prompt rejected")

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	os.Exit(exitCode(err, os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errRejected):
		return 2
	}

	fmt.Fprintln(stderr, styles.Error.Render("Error:"), err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintln(stderr, styles.Muted.Render("hint: "+hint))
	}
	return 1
}

type globalFlags struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "promptly",
		Short: "Rewrite prompts so the target model understands them better",
		Long: `promptly rewrites a prompt for a chosen target model without changing
what it asks for. Run it without arguments for the interactive app.

Examples:
  promptly                                   # interactive app
  promptly optimize "fix this plz"           # one-shot rewrite
  echo "explain monads" | promptly optimize --model claude-3-opus --json
  promptly models                            # list target models
  promptly history --limit 5                 # recent sessions`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newOptimizeCmd(flags))
	root.AddCommand(newImproveCmd(flags))
	root.AddCommand(newRetryCmd(flags))
	root.AddCommand(newModelsCmd())
	root.AddCommand(newHistoryCmd())

	return root
}

// loadConfig reads the config file and overlays the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func loadRegistry(cfg *config.Config) (*models.Registry, error) {
	if cfg.ModelsFile == "" {
		return models.Builtin(), nil
	}
	return models.Load(cfg.ModelsFile)
}

func openHistory() (*history.Store, error) {
	path, err := config.DataPath("history.db")
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

func runTUI(ctx context.Context, flags *globalFlags) error {
	logPath, err := config.DataPath("promptly.log")
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{File: logPath, Verbose: flags.verbose})
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg == nil {
		// Environment credentials skip the setup screen.
		fromEnv := config.DefaultConfig()
		fromEnv.ApplyEnv()
		if fromEnv.HasAPIKey() {
			cfg = fromEnv
		}
	} else {
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return errors.Wrap(err, "invalid config")
		}
	}

	regCfg := cfg
	if regCfg == nil {
		regCfg = config.DefaultConfig()
	}
	registry, err := loadRegistry(regCfg)
	if err != nil {
		return err
	}

	opts := tui.Options{Config: cfg, Registry: registry, Logger: logger}

	// History stays available even if it is turned on later in settings.
	store, err := openHistory()
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
	} else {
		defer store.Close()
		opts.Recorder = store
	}

	logger.Info("starting interactive session", zap.String("version", version))

	p := tea.NewProgram(
		tui.NewApp(opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "run interactive app")
	}
	return nil
}

// session is what a one-shot command needs to make a call.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *optimizer.Service
	store   *history.Store
}

func newSession(flags *globalFlags) (*session, error) {
	logger, err := logging.New(logging.Options{Verbose: flags.verbose})
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	invoker, err := llm.NewInvoker(cfg, logger)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	opts := []optimizer.Option{optimizer.WithLogger(logger)}

	if cfg.SaveHistory {
		store, err := openHistory()
		if err != nil {
			logger.Warn("history unavailable", zap.Error(err))
		} else {
			s.store = store
			opts = append(opts, optimizer.WithRecorder(store))
		}
	}

	s.service, err = optimizer.NewService(registry, invoker, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
	_ = s.logger.Sync()
}
