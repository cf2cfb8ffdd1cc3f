package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sstent/activity-lookup/internal/logger"
)

type Pruner interface {
	PruneBefore(t time.Time) (int64, error)
}

// PruneJob drops lookup log entries older than the retention window.
type PruneJob struct {
	store     Pruner
	retention time.Duration
	now       func() time.Time
}

var _ cron.Job = (*PruneJob)(nil)

func NewPruneJob(store Pruner, retention time.Duration) *PruneJob {
	return &PruneJob{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
}

func (j *PruneJob) Run() {
	cutoff := j.now().Add(-j.retention)

	removed, err := j.store.PruneBefore(cutoff)
	if err != nil {
		logger.Log.Error().Err(err).Time("cutoff", cutoff).Msg("lookup log prune failed")
		return
	}
	logger.Log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("lookup log pruned")
}

// Schedule adds the job to c under a standard cron spec or descriptor such as "@hourly".
func (j *PruneJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	id, err := c.AddJob(spec, j)
	if err != nil {
		return 0, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return id, nil
}
