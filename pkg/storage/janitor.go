package storage

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/virallabs/viralbot/pkg/logger"
)

// Janitor sweeps the store on a cron schedule so stored videos and cover
// images do not accumulate forever.
type Janitor struct {
	store     *Store
	schedule  string
	retention time.Duration
	gron      *gronx.Gronx
}

func NewJanitor(store *Store, schedule string, retention time.Duration) *Janitor {
	return &Janitor{
		store:     store,
		schedule:  schedule,
		retention: retention,
		gron:      gronx.New(),
	}
}

// Run blocks until the context is cancelled, checking the schedule once a
// minute and sweeping when it is due.
func (j *Janitor) Run(ctx context.Context) {
	if !j.gron.IsValid(j.schedule) {
		logger.ErrorCF("janitor", "Invalid cleanup schedule, janitor disabled", map[string]interface{}{
			"schedule": j.schedule,
		})
		return
	}

	logger.InfoCF("janitor", "Cleanup scheduler started", map[string]interface{}{
		"schedule":  j.schedule,
		"retention": j.retention.String(),
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("janitor", "Cleanup scheduler stopped")
			return
		case now := <-ticker.C:
			due, err := j.gron.IsDue(j.schedule, now)
			if err != nil || !due {
				continue
			}
			if _, err := j.store.CleanupOld(j.retention); err != nil {
				logger.ErrorCF("janitor", "Cleanup sweep failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}
