package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ForecastLogger provides dedicated logging for forecast runs.
type ForecastLogger struct {
	*logrus.Entry
}

// NewForecastLogger creates a new forecast logger.
func NewForecastLogger(baseLogger *logrus.Logger) *ForecastLogger {
	return &ForecastLogger{
		Entry: baseLogger.WithField("component", "forecast"),
	}
}

// WithRun scopes the logger to one forecast run.
func (fl *ForecastLogger) WithRun(runID, mode string) *ForecastLogger {
	return &ForecastLogger{Entry: fl.WithFields(logrus.Fields{"run_id": runID, "mode": mode})}
}

// LogRunStarted logs the start of a forecast run.
func (fl *ForecastLogger) LogRunStarted(states, races, gridNodes int, tabulated bool) {
	fl.WithFields(logrus.Fields{
		"states":     states,
		"races":      races,
		"grid_nodes": gridNodes,
		"tabulated":  tabulated,
	}).Info("Forecast run started")
}

// LogStateStarted logs the start of a per-state computation.
func (fl *ForecastLogger) LogStateStarted(state string, contested, folded, skipped int) {
	fl.WithFields(logrus.Fields{
		"state":     state,
		"contested": contested,
		"folded":    folded,
		"skipped":   skipped,
	}).Debug("State computation started")
}

// LogStateCompleted logs a finished per-state computation.
func (fl *ForecastLogger) LogStateCompleted(state string, probability float64, races int, duration time.Duration) {
	fl.WithFields(logrus.Fields{
		"state":                  state,
		"bipartisan_probability": probability,
		"races":                  races,
		"duration_ms":            duration.Milliseconds(),
	}).Info("State computation completed")
}

// LogStateFailed logs a state that was skipped after an error.
func (fl *ForecastLogger) LogStateFailed(state string, err error) {
	fl.WithError(err).WithField("state", state).Error("State computation failed, skipping")
}

// LogCDFTable logs the outcome of building the CDF lookup table.
func (fl *ForecastLogger) LogCDFTable(samples int, duration time.Duration, err error) {
	if err != nil {
		fl.WithError(err).WithField("samples", samples).Warn("CDF table unavailable, evaluating the t distribution directly")
		return
	}
	fl.WithFields(logrus.Fields{
		"samples":     samples,
		"duration_ms": duration.Milliseconds(),
	}).Info("CDF table built")
}

// LogRunCompleted logs the end of a forecast run.
func (fl *ForecastLogger) LogRunCompleted(succeeded, failed int, duration time.Duration) {
	fl.WithFields(logrus.Fields{
		"succeeded":   succeeded,
		"failed":      failed,
		"duration_ms": duration.Milliseconds(),
	}).Info("Forecast run completed")
}
