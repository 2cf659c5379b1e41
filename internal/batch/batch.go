// Package batch hands stage invocations to a PBS/Torque scheduler through
// qsub. It only builds and pipes the command line; queueing is the
// scheduler's business.
package batch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/KyungWonPark/MovieISC/internal/config"
	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Submission is one job handed to qsub
type Submission struct {
	Name    string
	Command string
	Job     config.Job
}

// Resources renders the -l argument, e.g. nodes=1:ppn=1,walltime=48:00:00,mem=128gb
func (s Submission) Resources() string {
	cpus := s.Job.CPUs
	if cpus < 1 {
		cpus = 1
	}
	res := []string{fmt.Sprintf("nodes=1:ppn=%d", cpus)}
	if s.Job.Walltime != "" {
		res = append(res, "walltime="+s.Job.Walltime)
	}
	if s.Job.Memory != "" {
		res = append(res, "mem="+s.Job.Memory)
	}
	return strings.Join(res, ",")
}

// Args returns the qsub arguments
func (s Submission) Args() []string {
	return []string{"-l", s.Resources(), "-N", s.Name}
}

// String is the equivalent shell line
func (s Submission) String() string {
	return fmt.Sprintf("echo %q | qsub %s", s.Command, strings.Join(s.Args(), " "))
}

// Runner executes qsub with the job script on stdin and returns its output
type Runner func(ctx context.Context, stdin string, args ...string) (string, error)

// Qsub runs the qsub binary found on PATH
func Qsub(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "qsub", args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", errors.IOError(strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Submit hands every submission to run and returns the scheduler's job ids.
// A failed submission stops the batch.
func Submit(ctx context.Context, subs []Submission, run Runner, dryRun bool) ([]string, error) {
	var ids []string
	for _, s := range subs {
		logger := log.WithFields(log.Fields{"job": s.Name, "resources": s.Resources()})
		if dryRun {
			logger.Info(s.String())
			continue
		}
		id, err := run(ctx, s.Command, s.Args()...)
		if err != nil {
			return ids, errors.Wrapf(err, "submitting %s", s.Name)
		}
		logger.WithField("id", id).Info("Submitted")
		ids = append(ids, id)
	}
	return ids, nil
}

// PerMovie expands a stage into one submission per movie, passing --movie
func PerMovie(stage, binary, configPath string, movies []string, job config.Job) []Submission {
	subs := make([]Submission, 0, len(movies))
	for _, m := range movies {
		subs = append(subs, Submission{
			Name:    fmt.Sprintf("%s_%s", stage, m),
			Command: commandLine(binary, configPath, "--movie", m),
			Job:     job,
		})
	}
	return subs
}

// Single is a stage submitted as one job
func Single(stage, binary, configPath string, job config.Job) Submission {
	return Submission{Name: stage, Command: commandLine(binary, configPath), Job: job}
}

func commandLine(binary, configPath string, extra ...string) string {
	parts := []string{binary}
	if configPath != "" {
		parts = append(parts, "--config", configPath)
	}
	return strings.Join(append(parts, extra...), " ")
}
