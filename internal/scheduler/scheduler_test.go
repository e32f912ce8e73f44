package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func noop(ctx context.Context) error { return nil }

func TestScheduleRejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(quietLogger())
	assert.Error(t, s.Schedule("forecast", "every tuesday", 0, noop))
}

func TestScheduleRejectsDuplicateName(t *testing.T) {
	s := NewScheduler(quietLogger())
	require.NoError(t, s.Schedule("forecast", "0 6 * * *", 0, noop))
	assert.Error(t, s.Schedule("forecast", "0 18 * * *", 0, noop))
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(quietLogger())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestLifecycle(t *testing.T) {
	s := NewScheduler(quietLogger())
	require.NoError(t, s.Schedule("forecast", "0 6 * * *", time.Hour, noop))
	assert.True(t, s.NextRun().IsZero())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(context.Background()))
	assert.Error(t, s.Schedule("other", "@hourly", 0, noop))
	assert.Error(t, s.Remove("forecast"))

	next := s.NextRun()
	require.False(t, next.IsZero())
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, time.UTC, next.Location())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop())

	require.NoError(t, s.Remove("forecast"))
	assert.Error(t, s.Remove("forecast"))
}

func TestJobsRunWithDeadlineAndSurviveFailures(t *testing.T) {
	var calls atomic.Int32
	var sawDeadline atomic.Bool
	s := NewScheduler(quietLogger())
	require.NoError(t, s.Schedule("forecast", "@every 1s", time.Minute, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			sawDeadline.Store(true)
		}
		calls.Add(1)
		return errors.New("input missing")
	}))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	assert.True(t, sawDeadline.Load())
}

func TestValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("0 6 * * *"))
	assert.NoError(t, ValidateSpec("@every 12h"))
	assert.Error(t, ValidateSpec("61 * * * *"))
}
