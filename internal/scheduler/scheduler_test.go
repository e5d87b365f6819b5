package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (j *testJob) Run() error {
	j.runs++
	return j.err
}

func (j *testJob) Name() string {
	return j.name
}

func TestAddJobValidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("@hourly", &testJob{name: "test"})
	assert.NoError(t, err)
}

func TestAddJobInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	err := s.AddJob("not a schedule", &testJob{name: "test"})
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())

	job := &testJob{name: "test"}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

func TestRunNowPropagatesError(t *testing.T) {
	s := New(zerolog.Nop())

	job := &testJob{name: "failing", err: errors.New("boom")}
	assert.Error(t, s.RunNow(job))
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@daily", &testJob{name: "noop"}))

	s.Start()
	s.Stop()
}
