package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/config"
)

// jobTimeout bounds a single job run
const jobTimeout = 10 * time.Minute

type retentionRunner interface {
	Run(ctx context.Context, days int) (*audit.RetentionResult, error)
}

type permissionRelinker interface {
	RelinkPermissions(ctx context.Context) (int, error)
}

type sessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// jobs holds the scheduled maintenance tasks
type jobs struct {
	retention     retentionRunner
	retentionDays int
	relinker      permissionRelinker
	sessions      sessionCleaner
	log           *logrus.Logger
}

func (j *jobs) prune(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	result, err := j.retention.Run(ctx, j.retentionDays)
	if err != nil {
		return fmt.Errorf("activity prune failed: %w", err)
	}
	j.log.WithFields(logrus.Fields{
		"job":      "prune",
		"cutoff":   result.Cutoff.Format(time.RFC3339),
		"archived": result.Archived,
		"object":   result.ObjectKey,
		"pruned":   result.Pruned,
	}).Info("Activity prune completed")
	return nil
}

func (j *jobs) relink(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := j.relinker.RelinkPermissions(ctx)
	if err != nil {
		return fmt.Errorf("permission relink failed: %w", err)
	}
	j.log.WithFields(logrus.Fields{"job": "relink", "relinked": n}).Info("Permission relink completed")
	return nil
}

func (j *jobs) cleanupSessions(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	n, err := j.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		return err
	}
	j.log.WithFields(logrus.Fields{"job": "session-cleanup", "deleted": n}).Info("Session cleanup completed")
	return nil
}

// byName returns the job run by -run-once
func (j *jobs) byName(name string) (func(context.Context) error, bool) {
	switch name {
	case "prune":
		return j.prune, true
	case "relink":
		return j.relink, true
	case "session-cleanup":
		return j.cleanupSessions, true
	}
	return nil, false
}

// register adds every job with a non-empty schedule to c
func (j *jobs) register(ctx context.Context, c *cron.Cron, schedules config.SchedulerConfig) error {
	entries := []struct {
		name     string
		schedule string
		run      func(context.Context) error
	}{
		{"prune", schedules.PruneSchedule, j.prune},
		{"relink", schedules.RelinkSchedule, j.relink},
		{"session-cleanup", schedules.SessionCleanupSchedule, j.cleanupSessions},
	}

	for _, e := range entries {
		if e.schedule == "" {
			j.log.WithField("job", e.name).Info("Job disabled")
			continue
		}
		e := e
		_, err := c.AddFunc(e.schedule, func() {
			if err := e.run(ctx); err != nil {
				j.log.WithError(err).WithField("job", e.name).Error("Job failed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", e.name, err)
		}
		j.log.WithFields(logrus.Fields{"job": e.name, "schedule": e.schedule}).Info("Job scheduled")
	}
	return nil
}
