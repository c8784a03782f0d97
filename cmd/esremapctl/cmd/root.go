// Package cmd provides the commands of esremapctl.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/esremap/internal/app"
	"github.com/kailas-cloud/esremap/internal/config"
	logpkg "github.com/kailas-cloud/esremap/internal/logger"
	"github.com/kailas-cloud/esremap/internal/version"
)

// Default retry policy applied by --retry when an index configures none.
const (
	defaultRetryDelayMS = 1000
	defaultMaxDelayMS   = 5 * 60 * 1000
)

type globalFlags struct {
	env     string
	segment string
	retry   bool
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command. opts are passed to every application build.
func NewRootCmd(opts ...app.Option) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "esremapctl",
		Short: "Manage and remap Elasticsearch indexes behind aliases",
		Long: `esremapctl manages the logical indexes configured in config/{env}.yaml.

Every logical index lives behind a read alias and a write alias, so
"remap" can move it onto a new mapping while applications keep reading
and writing.`,
		Version:       version.String(),
		SilenceUsage:  true,
	}
	cmd.SetVersionTemplate("esremapctl version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flags.env, "env", config.GetEnv(), "Configuration environment (config/{env}.yaml)")
	cmd.PersistentFlags().StringVar(&flags.segment, "segment", "", "Operate on a segment of the index, e.g. EuropeWest")
	cmd.PersistentFlags().BoolVar(&flags.retry, "retry", false, "Retry recoverable engine errors while deleting indexes")

	cmd.AddCommand(newListCmd(flags, opts))
	cmd.AddCommand(newStatusCmd(flags, opts))
	for _, a := range indexActions() {
		cmd.AddCommand(newActionCmd(a, flags, opts))
	}

	return cmd
}

// session is one loaded configuration plus the application built from it.
type session struct {
	app    *app.App
	logger *zap.Logger
}

func (s *session) close() {
	s.app.Close()
	_ = s.logger.Sync()
}

func open(ctx context.Context, flags *globalFlags, opts []app.Option) (context.Context, *session, error) {
	cfg, err := config.Load(flags.env)
	if err != nil {
		return ctx, nil, err
	}
	if flags.retry {
		enableRetry(&cfg)
	}

	logger, err := logpkg.NewLogger(flags.env, cfg.Logging.Level)
	if err != nil {
		return ctx, nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.Build(ctx, cfg, logger, opts...)
	if err != nil {
		_ = logger.Sync()
		return ctx, nil, err
	}
	return logpkg.ContextWithLogger(ctx, logger), &session{app: a, logger: logger}, nil
}

// enableRetry turns on retries of recoverable errors for every index, keeping configured delays.
func enableRetry(cfg *config.Config) {
	for name, ix := range cfg.Indexes {
		ix.Retry.RetryOnRecoverable = true
		if ix.Retry.RetryDelayMS <= 0 {
			ix.Retry.RetryDelayMS = defaultRetryDelayMS
		}
		if ix.Retry.MaxDelayMS <= 0 {
			ix.Retry.MaxDelayMS = defaultMaxDelayMS
		}
		cfg.Indexes[name] = ix
	}
}
