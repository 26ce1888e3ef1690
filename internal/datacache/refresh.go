package datacache

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Warmer is implemented by Source.
type Warmer interface {
	Warm(ctx context.Context, modes []string) error
}

// Refresher re-runs a cache warm-up on a cron schedule.
type Refresher struct {
	cron    *cron.Cron
	warmer  Warmer
	modes   []string
	timeout time.Duration
}

// NewRefresher schedules w.Warm(modes). schedule accepts standard five-field
// cron specs and descriptors such as "@daily".
func NewRefresher(w Warmer, modes []string, schedule string) (*Refresher, error) {
	r := &Refresher{
		cron:    cron.New(),
		warmer:  w,
		modes:   modes,
		timeout: 5 * time.Minute,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, eris.Wrapf(err, "datacache: parse refresh schedule %q", schedule)
	}
	return r, nil
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.warmer.Warm(ctx, r.modes); err != nil {
		zap.L().Warn("datacache: scheduled refresh failed", zap.Error(err))
		return
	}
	zap.L().Info("datacache: scheduled refresh complete", zap.Strings("modes", r.modes))
}

// Start runs the scheduler in the background.
func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the scheduler and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
