package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Specs holds the cron expressions of the jobs (standard five fields).
// Purge is optional; it is only scheduled when the coordinator has a Purge
// func.
type Specs struct {
	Weekly  string
	Monthly string
	Purge   string
}

// NewCron registers both jobs on a cron scheduler evaluated in the report
// location. The caller starts it and, on shutdown, waits on the context
// returned by Stop so running jobs can finish.
func NewCron(c *Coordinator, specs Specs) (*cron.Cron, error) {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{l: log.With().Str("component", "cron").Logger()}
	cr := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)

	for _, j := range []struct{ name, spec string }{
		{JobWeekly, specs.Weekly},
		{JobMonthly, specs.Monthly},
	} {
		name := j.name
		if _, err := cr.AddFunc(j.spec, func() { c.trigger(name) }); err != nil {
			return nil, fmt.Errorf("schedule %s job %q: %w", name, j.spec, err)
		}
	}

	if specs.Purge != "" && c.Purge != nil {
		if _, err := cr.AddFunc(specs.Purge, c.purge); err != nil {
			return nil, fmt.Errorf("schedule purge job %q: %w", specs.Purge, err)
		}
	}
	return cr, nil
}

func (c *Coordinator) purge() {
	n, err := c.Purge(context.Background(), c.now())
	if err != nil {
		log.Error().Err(err).Str("component", "cron").Msg("idempotency purge failed")
		return
	}
	log.Debug().Str("component", "cron").Int64("purged", n).Msg("idempotency keys purged")
}

// trigger is the cron entry point. Re-entrant triggers are already logged by
// the guard, so only unexpected errors are reported here.
func (c *Coordinator) trigger(job string) {
	if _, err := c.Run(context.Background(), job); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		log.Error().Err(err).Str("component", "cron").Str("job", job).Msg("scheduled run failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
