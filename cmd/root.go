// Package cmd defines the CLI commands for the prospectflow executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/api"
	"github.com/walt0white1/prospectflow-sub000/internal/audit/runner"
	"github.com/walt0white1/prospectflow-sub000/internal/config"
	"github.com/walt0white1/prospectflow-sub000/internal/logging"
	"github.com/walt0white1/prospectflow-sub000/internal/server"
)

// envKeyType is the key for storing the command environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// env is what every subcommand receives after the root pre-run hook.
type env struct {
	configPath string
	cfg        config.Config
	logger     *zap.Logger
	stdout     io.Writer
}

// App defines the application surface commands use, so tests can inject a
// fake.
type App interface {
	Searches() api.SearchRunner
	Runner() runner.Runner
	Run(ctx context.Context) error
	Close(ctx context.Context) error
}

type serverApp struct {
	*server.App
}

func (a serverApp) Searches() api.SearchRunner { return a.Orchestrator() }

// newApp is the application factory. Tests replace it.
var newApp = func(ctx context.Context, e *env) (App, error) {
	app, err := server.Build(ctx, e.cfg, e.logger, server.Options{ConfigPath: e.configPath})
	if err != nil {
		return nil, err
	}
	return serverApp{app}, nil
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "prospectflow",
		Short: "Find local businesses and audit their websites.",
		Long: `prospectflow discovers businesses of a sector around a city from open
geodata, scores how much they need a new website, and audits existing sites
with a headless browser. It runs as an HTTP service or as one-shot commands.`,
		SilenceUsage: true,

		// Runs before every subcommand: config and logger are ready by RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(logging.Config{
				Development: cfg.Logging.Development,
				Level:       cfg.Logging.Level,
			})
			if err != nil {
				return err
			}
			logging.Install(logger)
			ctx := context.WithValue(cmd.Context(), envKey, &env{
				configPath: cfgFile,
				cfg:        cfg,
				logger:     logger,
				stdout:     cmd.OutOrStdout(),
			})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, err := resolveEnv(cmd.Context()); err == nil {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON); PROSPECT_* env vars override it")

	cmd.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newAuditCmd(),
		newAuditChildCmd(),
		newSectorsCmd(),
	)
	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("command environment not initialized")
	}
	return e, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
