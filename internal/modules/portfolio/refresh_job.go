package portfolio

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RefreshJob rebuilds the payload snapshot in the background so the first
// page load after the cache expires is served warm. Scheduled hourly; the
// provider's daily budget gates how often it actually hits the network.
type RefreshJob struct {
	service *Service
	log     zerolog.Logger
}

// NewRefreshJob creates a new payload refresh job.
func NewRefreshJob(service *Service, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		service: service,
		log:     log.With().Str("job", "portfolio_refresh").Logger(),
	}
}

// Run rebuilds the payload. Failures are reported, never fatal: a missing
// config simply means there is nothing to warm yet.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	payload, err := j.service.Rebuild(ctx)
	if err != nil {
		j.log.Warn().Err(err).Msg("Background payload refresh failed")
		return err
	}

	j.log.Info().
		Float64("total", payload.TotalCurrentValue).
		Msg("Payload snapshot refreshed")

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "portfolio_refresh"
}
