package usecase

import (
	"context"
	"time"

	"autopost/domain/repository"
	"autopost/infrastructure/logger"

	"github.com/robfig/cron/v3"
)

type JanitorConfig struct {
	Schedule         string
	JobRetention     time.Duration
	HistoryRetention time.Duration
}

type SweepResult struct {
	JobsDeleted    int64
	HistoryDeleted int64
}

// Janitor removes finished jobs past their retention. When history has no native expiry it
// purges history entries too.
type Janitor struct {
	jobs    repository.IGroupPost
	history repository.IPostHistory
	cfg     JanitorConfig
	cron    *cron.Cron
}

// NewJanitor builds the janitor. Pass a nil history for stores that expire entries themselves.
func NewJanitor(jobs repository.IGroupPost, history repository.IPostHistory, cfg JanitorConfig) *Janitor {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = 72 * time.Hour
	}
	if cfg.HistoryRetention <= 0 {
		cfg.HistoryRetention = 24 * time.Hour
	}
	return &Janitor{jobs: jobs, history: history, cfg: cfg, cron: cron.New()}
}

func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		j.Sweep(ctx, time.Now())
	}); err != nil {
		return err
	}
	logger.GetLogger().WithField("schedule", j.cfg.Schedule).Info("Janitor scheduled")
	j.cron.Start()
	return nil
}

// Stop stops the schedule and returns a context that is done once a running sweep finishes.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

func (j *Janitor) Sweep(ctx context.Context, now time.Time) SweepResult {
	var res SweepResult
	lg := logger.GetLogger()

	n, err := j.jobs.DeleteFinishedBefore(ctx, now.Add(-j.cfg.JobRetention))
	if err != nil {
		lg.WithField("error", err).Error("Error while deleting expired group post jobs")
	} else {
		res.JobsDeleted = n
	}

	if j.history != nil {
		n, err := j.history.DeleteOlderThan(ctx, now.Add(-j.cfg.HistoryRetention))
		if err != nil {
			lg.WithField("error", err).Error("Error while purging group post history")
		} else {
			res.HistoryDeleted = n
		}
	}

	lg.WithField("jobs", res.JobsDeleted).WithField("history", res.HistoryDeleted).Info("Janitor sweep finished")
	return res
}
