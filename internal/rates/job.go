package rates

import (
	"context"
	"log/slog"
	"time"
)

// Job runs the refresh on a fixed interval until its context is cancelled.
// It fires once immediately so a fresh deployment serves rates without
// waiting out the first tick.
type Job struct {
	service  *Service
	interval time.Duration
}

func NewJob(service *Service, interval time.Duration) *Job {
	return &Job{service: service, interval: interval}
}

func (j *Job) Run(ctx context.Context) {
	slog.Info("rates job started", "interval", j.interval)

	j.refresh(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("rates job stopped")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *Job) refresh(ctx context.Context) {
	if _, err := j.service.Refresh(ctx); err != nil {
		slog.Error("scheduled rates refresh failed", "error", err)
	}
}
