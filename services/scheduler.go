// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// DailyExporter is run once a day for the previous UTC day.
type DailyExporter interface {
	ExportDay(ctx context.Context, day time.Time) (int, error)
}

// ProfileSyncer pulls customer profile changes from the profile service.
type ProfileSyncer interface {
	SyncProfiles(ctx context.Context) (int, error)
}

// SchedulerDeps are the jobs' collaborators. Exporter and ProfileSync may be nil.
type SchedulerDeps struct {
	Customers           *CustomerService
	FlashDrops          *FlashDropService
	Exporter            DailyExporter
	ProfileSync         ProfileSyncer
	TierInterval        time.Duration
	ProfileSyncInterval time.Duration
	Log                 *zap.Logger
}

// StartLoyaltyScheduler registers the background jobs and starts the scheduler.
func StartLoyaltyScheduler(ctx context.Context, d SchedulerDeps) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	log := d.Log.With(zap.String("component", "scheduler"))

	if _, err := sched.NewJob(
		gocron.DurationJob(d.TierInterval),
		gocron.NewTask(func() {
			fixed, err := d.Customers.ReconcileTiers(ctx)
			if err != nil {
				log.Error("[Scheduler] tier reconcile failed", zap.Error(err))
				return
			}
			if fixed > 0 {
				log.Info("[Scheduler] ✅ tiers reconciled", zap.Int("customers", fixed))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			ended, err := d.FlashDrops.EndExpired(ctx)
			if err != nil {
				log.Error("[Scheduler] flash drop expiry failed", zap.Error(err))
				return
			}
			if ended > 0 {
				log.Info("[Scheduler] flash drops ended", zap.Int64("count", ended))
			}
		}),
	); err != nil {
		return nil, err
	}

	if d.Exporter != nil {
		if _, err := sched.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
			gocron.NewTask(func() {
				day := time.Now().UTC().AddDate(0, 0, -1)
				n, err := d.Exporter.ExportDay(ctx, day)
				if err != nil {
					log.Error("[Scheduler] activity export failed", zap.Time("day", day), zap.Error(err))
					return
				}
				log.Info("[Scheduler] activity exported", zap.Time("day", day), zap.Int("rows", n))
			}),
		); err != nil {
			return nil, err
		}
	}

	if d.ProfileSync != nil {
		if _, err := sched.NewJob(
			gocron.DurationJob(d.ProfileSyncInterval),
			gocron.NewTask(func() {
				if _, err := d.ProfileSync.SyncProfiles(ctx); err != nil {
					log.Error("[Scheduler] profile sync failed", zap.Error(err))
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		); err != nil {
			return nil, err
		}
	}

	sched.Start()
	return sched, nil
}
