package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/config"
	"github.com/KyungWonPark/MovieISC/internal/errors"
	"github.com/KyungWonPark/MovieISC/internal/ledger"
)

func setup(t *testing.T) (string, *config.Config) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	cfg := config.DefaultConfig()
	cfg.Root = dir
	cfg.Paths.Roster = write("roster.csv", "PID,age,sex_char\n1,20,F\n2,25,M\n")
	cfg.Paths.AtlasLabels = write("labels.csv", "one_based,label,Yeo_7network\n1,A8m_L,7\n")
	cfg.Paths.RealPairs = write("pairs.csv", "PairID\n001_002\n")
	cfg.LedgerPath = "ledger.db"
	cfg.MetricsPath = "metrics"

	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path, cfg
}

func execute(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func TestStageRun(t *testing.T) {
	path, cfg := setup(t)

	var seen *Env
	cmd := NewStageCommand(Stage{
		Name: "pairlist",
		Run: func(ctx context.Context, env *Env) error {
			seen = env
			env.Processed(2)
			env.Skip(ctx, "003", "not in roster")
			return nil
		},
	})
	require.NoError(t, execute(cmd, "--config", path, "--log-level", "debug"))

	require.NotNil(t, seen)
	assert.Equal(t, []string{"001", "002"}, seen.Bundle.PIDs())
	assert.Equal(t, "debug", seen.Config.LogLevel)

	l, err := ledger.Open(filepath.Join(cfg.Root, "ledger.db"))
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(context.Background(), "pairlist", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.StatusSucceeded, runs[0].Status)
	assert.Equal(t, 2, runs[0].Processed)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, seen.Bundle.Version, runs[0].BundleVersion)

	assert.FileExists(t, filepath.Join(cfg.Root, "metrics", "pairlist.prom"))
}

func TestStageFailure(t *testing.T) {
	path, cfg := setup(t)

	cmd := NewStageCommand(Stage{
		Name: "dataframes",
		Run: func(ctx context.Context, env *Env) error {
			return errors.LookupMismatch("pair 001_009 not in matrix")
		},
	})
	err := execute(cmd, "--config", path)
	assert.True(t, errors.HasCode(err, errors.CodeLookupMismatch))

	l, err := ledger.Open(filepath.Join(cfg.Root, "ledger.db"))
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.Runs(context.Background(), "dataframes", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.StatusFailed, runs[0].Status)
}

func TestMissingReference(t *testing.T) {
	path, _ := setup(t)
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	cfg.Paths.Roster = filepath.Join(cfg.Root, "absent.csv")
	require.NoError(t, config.SaveConfig(cfg, path))

	ran := false
	cmd := NewStageCommand(Stage{Name: "controls", Run: func(context.Context, *Env) error { ran = true; return nil }})
	err = execute(cmd, "--config", path)
	assert.True(t, errors.HasCode(err, errors.CodeMissingInput), fmt.Sprint(err))
	assert.False(t, ran)
}

func TestNoBundleStage(t *testing.T) {
	dir := t.TempDir()
	cmd := NewStageCommand(Stage{
		Name:     "ledger",
		NoBundle: true,
		Run: func(ctx context.Context, env *Env) error {
			assert.Nil(t, env.Bundle)
			return nil
		},
	})
	assert.NoError(t, execute(cmd, "--config", filepath.Join(dir, "absent.yaml")))
}
