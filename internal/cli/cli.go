// Package cli is the shared harness of the stage binaries: flags, config,
// logging, reference data, run ledger and metrics.
package cli

import (
	"context"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KyungWonPark/MovieISC/internal/config"
	"github.com/KyungWonPark/MovieISC/internal/ledger"
	"github.com/KyungWonPark/MovieISC/internal/logging"
	"github.com/KyungWonPark/MovieISC/internal/metrics"
	"github.com/KyungWonPark/MovieISC/internal/refdata"
)

// Env is what a stage runs with
type Env struct {
	Config *config.Config
	Bundle *refdata.Bundle
	Ledger *ledger.Ledger
	Log    *log.Entry

	// ConfigPath is the --config value, passed on to submitted jobs
	ConfigPath string

	run     *ledger.Recorder
	metrics *metrics.Stage
}

// RunID is the ledger id of the current run
func (e *Env) RunID() string {
	return e.run.ID()
}

// Processed counts n finished items
func (e *Env) Processed(n int) {
	e.run.Processed(n)
	e.metrics.Processed(n)
}

// Skip logs and records an item the stage leaves out
func (e *Env) Skip(ctx context.Context, item, reason string) {
	e.Log.WithField("item", item).Warn(reason)
	e.metrics.Skipped()
	if err := e.run.Skip(ctx, item, reason); err != nil {
		e.Log.WithError(err).Warn("Failed to record skip")
	}
}

// Stage describes one pipeline binary
type Stage struct {
	Name  string
	Short string

	// Upstream stages whose reference bundle should match ours
	Upstream []string
	// NoBundle stages run without reference data
	NoBundle bool

	Flags func(cmd *cobra.Command)
	Run   func(ctx context.Context, env *Env) error
}

// NewStageCommand wraps a stage in a cobra command with --config and --log-level
func NewStageCommand(s Stage) *cobra.Command {
	var configPath, logLevel string

	cmd := &cobra.Command{
		Use:           s.Name,
		Short:         s.Short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return runStage(cmd.Context(), s, cfg, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "Pipeline configuration file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	if s.Flags != nil {
		s.Flags(cmd)
	}
	return cmd
}

func runStage(ctx context.Context, s Stage, cfg *config.Config, configPath string) error {
	env := &Env{Config: cfg, Log: logging.Stage(s.Name), ConfigPath: configPath}

	version := ""
	if !s.NoBundle {
		b, err := refdata.Load(cfg.Path(cfg.Paths.Roster), cfg.Path(cfg.Paths.AtlasLabels), cfg.Path(cfg.Paths.RealPairs))
		if err != nil {
			return err
		}
		env.Bundle = b
		version = b.Version
		env.Log = env.Log.WithField("bundle", version)
	}

	l, err := ledger.Open(cfg.Path(cfg.LedgerPath))
	if err != nil {
		return err
	}
	defer l.Close()
	env.Ledger = l

	if !s.NoBundle {
		if _, err := l.CheckUpstream(ctx, version, s.Upstream...); err != nil {
			return err
		}
	}

	if env.run, err = l.Begin(ctx, s.Name, version); err != nil {
		return err
	}
	env.metrics = metrics.NewStage(s.Name)

	env.Log.Info("Stage started")
	runErr := s.Run(ctx, env)

	if err := env.run.Finish(ctx, runErr); err != nil {
		env.Log.WithError(err).Warn("Failed to close ledger run")
	}
	if err := env.metrics.Finish(metricsFile(cfg, s.Name)); err != nil {
		env.Log.WithError(err).Warn("Failed to write metrics")
	}

	processed, skipped := env.run.Counts()
	logger := env.Log.WithFields(log.Fields{"processed": processed, "skipped": skipped, "run": env.run.ID()})
	if runErr != nil {
		logger.WithError(runErr).Error("Stage failed")
		return runErr
	}
	logger.Info("Stage finished")
	return nil
}

// metricsFile is <METRICS_PATH>/<stage>.prom, the node-exporter textfile layout
func metricsFile(cfg *config.Config, stage string) string {
	if cfg.MetricsPath == "" {
		return ""
	}
	return filepath.Join(cfg.Path(cfg.MetricsPath), stage+".prom")
}

// Main executes cmd and terminates the process on error
func Main(cmd *cobra.Command) {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("%s: %v", cmd.Name(), err)
	}
}
