package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const (
	settingScheduleEnabled = "schedule_enabled"
	settingLastCronRun     = "last_cron_run"
)

// Settings is the key/value subset of storage the scheduler needs.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Scheduler wires the cron-like driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	settings Settings
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, settings Settings, notifier ports.Notifier, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, settings: settings, notifier: notifier, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		_, _ = s.RunScheduled(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// RunScheduled executes one scheduled collection unless schedule_enabled is
// false, records last_cron_run and publishes the summary. ran is false when skipped.
func (s *Scheduler) RunScheduled(ctx context.Context, trigger time.Time) (ran bool, err error) {
	if !s.enabled(ctx) {
		s.info("scheduled collection disabled by setting", "trigger", trigger.Format(time.RFC3339))
		return false, nil
	}

	result, err := s.pipeline.RunCollection(ctx, RunOptions{Now: trigger})
	if err != nil {
		s.warn("scheduled collection failed", "error", err)
		return false, err
	}

	if s.settings != nil {
		if err := s.settings.SetSetting(ctx, settingLastCronRun, trigger.UTC().Format(time.RFC3339)); err != nil {
			s.warn("record last cron run", "error", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.PublishRunSummary(ctx, FormatSummary(result)); err != nil {
			s.warn("publish run summary", "error", err)
		}
	}
	return true, nil
}

func (s *Scheduler) enabled(ctx context.Context) bool {
	if s.settings == nil {
		return true
	}
	value, ok, err := s.settings.GetSetting(ctx, settingScheduleEnabled)
	if err != nil {
		s.warn("read schedule setting, assuming enabled", "error", err)
		return true
	}
	if !ok {
		return true
	}
	enabled, err := strconv.ParseBool(strings.Trim(strings.TrimSpace(value), `"`))
	if err != nil {
		return true
	}
	return enabled
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// FormatSummary renders a run result as a short plain-text report.
func FormatSummary(result domain.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Collection finished: %d/%d sources succeeded, %d new articles\n",
		result.SourcesSucceeded, result.SourcesAttempted, result.ArticlesInserted)
	for _, r := range result.PerSource {
		name := r.SourceName
		if name == "" {
			name = r.SourceID
		}
		if r.Status == domain.RunSuccess {
			fmt.Fprintf(&b, "- %s: %d\n", name, r.Count)
		} else {
			fmt.Fprintf(&b, "- %s: failed (%s)\n", name, r.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Scheduler) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
