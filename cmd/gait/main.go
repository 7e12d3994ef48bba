package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gaitloop/gait/agent"
	"github.com/gaitloop/gait/config"
	"github.com/gaitloop/gait/conv"
	"github.com/gaitloop/gait/llm"
	"github.com/gaitloop/gait/progress"
	"github.com/gaitloop/gait/tools"
)

var (
	version    = "0.1.0"
	cfgFile    string
	model      string
	maxSteps   int
	progressDB string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gait \"<request>\"",
		Short: "Autonomous tool-calling agent loop",
		Long: `Gait runs an LLM-driven agent loop: the model decides which tools to
call, gait executes them, and the observations feed the next exchange
until the terminate tool fires or the step budget runs out. The step
log is printed when the run ends.`,
		Args: cobra.ExactArgs(1),
		RunE: runAgent,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./gait.yaml, then $HOME/.config/gait/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model to use (overrides the config file)")
	rootCmd.PersistentFlags().IntVar(&maxSteps, "max-steps", 0, "step budget for the run (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&progressDB, "progress-db", "", "sqlite file for per-step progress notes (overrides the config file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gait version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags override the config file.
	if model != "" {
		cfg.Provider.Model = model
	}
	if maxSteps > 0 {
		cfg.Engine.MaxSteps = maxSteps
	}
	if progressDB != "" {
		cfg.ProgressDB = progressDB
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level)

	client, err := buildClient(cfg, logger)
	if err != nil {
		return err
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)

	opts := []agent.Option{
		agent.WithName("gait"),
		agent.WithConfig(engineConfig(cfg)),
		agent.WithSystemPrompt(cfg.Prompts.System),
		agent.WithNextStepPrompt(cfg.Prompts.NextStep),
		agent.WithLogger(logger),
	}

	if cfg.ProgressDB != "" {
		store, err := progress.NewStore(cfg.ProgressDB)
		if err != nil {
			return fmt.Errorf("failed to open progress store: %w", err)
		}
		defer store.Close()
		opts = append(opts, agent.WithTracker(store))
	}

	eng := agent.New(client, registry, opts...)

	// SIGINT/SIGTERM cancel the run at the next step boundary; the engine
	// reports "Operation cancelled" instead of dying mid-tool.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting run", "agent", eng.Name(), "run_id", eng.ID(), "max_steps", cfg.Engine.MaxSteps)

	out, err := eng.Run(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}

// loadConfig resolves and loads the YAML config. A missing file is only
// an error when --config named it explicitly; otherwise the defaults
// apply.
func loadConfig() (*config.Config, error) {
	path, err := config.FindConfig(cfgFile)
	if err != nil {
		if cfgFile != "" {
			return nil, err
		}
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildClient(cfg *config.Config, logger *slog.Logger) (*llm.Client, error) {
	opts := []llm.ClientOption{
		llm.WithTemperature(cfg.Provider.Temperature),
		llm.WithLogger(logger),
	}
	if cfg.Provider.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Provider.Model))
	}
	if cfg.Provider.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.Provider.APIKey))
	}
	if cfg.Provider.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.Provider.MaxTokens))
	}

	client, err := llm.NewClient(cfg.Provider.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return client, nil
}

func engineConfig(cfg *config.Config) agent.Config {
	ec := agent.DefaultConfig()
	ec.MaxSteps = cfg.Engine.MaxSteps
	ec.DuplicateThreshold = cfg.Engine.DuplicateThreshold
	ec.AccuracyMonitorInterval = cfg.Engine.AccuracyMonitorInterval
	ec.StepReviewInterval = cfg.Engine.StepReviewInterval
	ec.AutomaticRecovery = cfg.Engine.AutomaticRecovery
	ec.AdaptivePlanning = cfg.Engine.AdaptivePlanning
	if cfg.Engine.ToolChoice != "" {
		ec.ToolChoice = llm.ToolChoice(cfg.Engine.ToolChoice)
	}
	ec.Buffer = conv.Config{
		MaxTurns:          cfg.Buffer.MaxTurns,
		ContextCharBudget: cfg.Buffer.ContextCharBudget,
		SafetyMargin:      cfg.Buffer.SafetyMargin,
	}
	return ec
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output in gait goes through slog.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
