package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/keytrace/keytrace/pkg/log"
)

// stalePartialAge is how long a staged file may sit before the janitor
// considers its producer dead and removes it.
const stalePartialAge = time.Hour

// Janitor periodically removes cache entries past their retention and staged
// files abandoned by failed runs.
type Janitor struct {
	store     *Store
	retention time.Duration
	cron      *cron.Cron
}

func NewJanitor(store *Store, retention time.Duration) *Janitor {
	return &Janitor{
		store:     store,
		retention: retention,
		cron:      cron.New(),
	}
}

// Start schedules sweeps with the given cron expression. A non-positive
// retention disables artifact expiry; stale staged files are still swept.
func (j *Janitor) Start(expr string) error {
	if _, err := j.cron.AddFunc(expr, func() {
		removed, err := j.Sweep(time.Now())
		if err != nil {
			log.Error("cache sweep failed: %v", err)
			return
		}
		if removed > 0 {
			log.Info("cache sweep removed %d entries", removed)
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// Sweep removes expired artifacts and stale staged files, returning how many
// entries were deleted.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(j.store.Dir())
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(j.store.Dir(), entry.Name())
		age := now.Sub(info.ModTime())

		if strings.HasSuffix(entry.Name(), stagingSuffix) {
			if age > stalePartialAge {
				if os.Remove(path) == nil {
					removed++
				}
			}
			continue
		}
		if j.retention > 0 && age > j.retention {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}
