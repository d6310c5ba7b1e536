package translator

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/cometa-app/tscatalog/pkg/icron"
	"github.com/cometa-app/tscatalog/pkg/log"
)

// CronEngine is the part of *cron.Cron the scheduler registers jobs with.
type CronEngine interface {
	AddFunc(expr string, cmd func()) (cron.EntryID, error)
}

// Scheduler periodically reloads the active catalog and flushes the miss log.
type Scheduler struct {
	translator *Translator
	cron       CronEngine
	cronExpr   string
	group      singleflight.Group
}

func NewScheduler(tr *Translator, engine CronEngine, cronExpr string) *Scheduler {
	return &Scheduler{
		translator: tr,
		cron:       engine,
		cronExpr:   cronExpr,
	}
}

// Schedule registers the periodic job. The cron engine must be started by the
// caller.
func (s *Scheduler) Schedule(ctx context.Context) error {
	info, err := icron.GetTriggerInfo(s.cronExpr, time.Now())
	if err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.cronExpr, func() { s.RunOnce(ctx) }); err != nil {
		return err
	}
	log.Info("Catalog reload scheduled (%s), next run at %s", s.cronExpr, info.Next.Format(time.RFC3339))
	return nil
}

// RunOnce reloads the catalog and flushes misses. Overlapping runs collapse
// into one.
func (s *Scheduler) RunOnce(ctx context.Context) {
	_, _, _ = s.group.Do("run", func() (any, error) {
		if err := s.translator.Reload(ctx); err != nil {
			log.Error("Failed to reload %s catalog: %v", s.translator.Language(), err)
		}
		if err := s.translator.FlushMisses(ctx); err != nil {
			log.Error("Failed to flush lookup misses: %v", err)
		}
		return nil, nil
	})
}
