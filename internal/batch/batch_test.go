package batch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KyungWonPark/MovieISC/internal/config"
)

var job = config.Job{Command: "extract", CPUs: 1, Walltime: "48:00:00", Memory: "128gb"}

func TestSubmissionLine(t *testing.T) {
	s := Single("extract", "extract", "pipeline.yaml", job)
	assert.Equal(t, "nodes=1:ppn=1,walltime=48:00:00,mem=128gb", s.Resources())
	assert.Equal(t, `echo "extract --config pipeline.yaml" | qsub -l nodes=1:ppn=1,walltime=48:00:00,mem=128gb -N extract`, s.String())
}

func TestPerMovie(t *testing.T) {
	subs := PerMovie("matrices", "/opt/bin/matrices", "", []string{"movie1", "movie2"}, config.Job{CPUs: 4})
	require.Len(t, subs, 2)
	assert.Equal(t, "matrices_movie2", subs[1].Name)
	assert.Equal(t, "/opt/bin/matrices --movie movie2", subs[1].Command)
	assert.Equal(t, "nodes=1:ppn=4", subs[1].Resources())
}

func TestSubmit(t *testing.T) {
	var got []string
	run := func(ctx context.Context, stdin string, args ...string) (string, error) {
		got = append(got, stdin)
		if len(got) == 3 {
			return "", fmt.Errorf("qsub: queue full")
		}
		return fmt.Sprintf("%d.pbs", len(got)), nil
	}

	subs := PerMovie("matrices", "matrices", "", []string{"movie1", "movie2", "movie3", "movie4"}, job)
	ids, err := Submit(context.Background(), subs, run, false)
	assert.Error(t, err)
	assert.Equal(t, []string{"1.pbs", "2.pbs"}, ids)
	assert.Len(t, got, 3)

	got = nil
	ids, err = Submit(context.Background(), subs, run, true)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, got)
}
