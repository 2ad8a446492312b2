package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/felixbrock/promptstudio/internal/app"
	"github.com/felixbrock/promptstudio/internal/config"
	"github.com/felixbrock/promptstudio/internal/diff"
	"github.com/felixbrock/promptstudio/internal/logger"
	"github.com/felixbrock/promptstudio/internal/persistence"
	"github.com/felixbrock/promptstudio/internal/pipeline"
)

// env is what every subcommand gets after the root command has loaded the
// configuration.
type env struct {
	configPath string
	cfg        *config.Config
	log        *logger.Logger
}

func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "promptstudio",
		Short: "Prompt optimizer with structured diagnosis, model variants and history",
		Long: `promptstudio sends a prompt to a completion service, turns the reply into a
validated optimization result and keeps the latest results per client.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				e.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "config file (yaml, toml or json)")

	root.AddCommand(
		newServeCmd(e),
		newOptimizeCmd(e),
		newExtractCmd(e),
		newDiffCmd(e),
		newHistoryCmd(e),
	)

	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}

func (e *env) load() error {
	cfg, err := config.Load(e.configPath)

	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Mode)

	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	zap.ReplaceGlobals(log.SugaredLogger.Desugar())

	e.cfg = cfg
	e.log = log
	return nil
}

func (e *env) limits() pipeline.Limits {
	return pipeline.Limits{
		MaxPromptLength:       e.cfg.Limits.MaxPromptLength,
		MaxFieldLength:        e.cfg.Limits.MaxFieldLength,
		MaxInstructionsLength: e.cfg.Limits.MaxInstructionsLength,
	}
}

func (e *env) appConfig() (app.Config, error) {
	mode, err := diff.ParseMode(e.cfg.Diff.Mode)

	if err != nil {
		return app.Config{}, err
	}

	return app.Config{
		Limits:            e.limits(),
		DiffMode:          mode,
		HistoryKey:        e.cfg.History.Key,
		MaxEntries:        e.cfg.History.MaxEntries,
		RatePerSecond:     e.cfg.Rate.PerSecond,
		Burst:             e.cfg.Rate.Burst,
		CompletionTimeout: e.cfg.Completion.Timeout,
		StaticDir:         e.cfg.Server.StaticDir,
	}, nil
}

func (e *env) storeConfig() persistence.StoreConfig {
	return persistence.StoreConfig{
		Backend:   e.cfg.History.Backend,
		Path:      e.cfg.History.Path,
		RedisAddr: e.cfg.History.RedisAddr,
	}
}

var errNoProvider = errors.New("no completion provider configured")

// disabled answers every completion with errNoProvider.
type disabled struct{}

func (disabled) Complete(context.Context, string, string) (string, error) {
	return "", errNoProvider
}

func (e *env) completer(ctx context.Context) (app.Completer, error) {
	c := e.cfg.Completion

	switch strings.ToLower(c.Provider) {
	case "gemini":
		return persistence.NewGeminiRepo(ctx, c.APIKey, c.Model, c.Temperature, c.TopK, c.TopP)
	case "openai":
		if c.APIKey == "" {
			return nil, errors.New("OpenAI API key is required")
		}
		return persistence.NewOAIRepo(c.APIKey, c.Model, c.Temperature, c.TopP), nil
	default:
		return disabled{}, nil
	}
}
