package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingExporter struct{ calls atomic.Int32 }

func (e *countingExporter) ExportDay(context.Context, time.Time) (int, error) {
	e.calls.Add(1)
	return 0, nil
}

type countingSyncer struct{ calls atomic.Int32 }

func (s *countingSyncer) SyncProfiles(context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func schedulerDeps(t *testing.T) SchedulerDeps {
	db := newTestDB(t)
	log := zap.NewNop()
	return SchedulerDeps{
		Customers:           NewCustomerService(db, log),
		FlashDrops:          NewFlashDropService(db, log),
		TierInterval:        time.Hour,
		ProfileSyncInterval: time.Hour,
		Log:                 log,
	}
}

func TestStartLoyaltyScheduler_CoreJobsOnly(t *testing.T) {
	sched, err := StartLoyaltyScheduler(context.Background(), schedulerDeps(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	assert.Len(t, sched.Jobs(), 2, "tier reconcile and flash drop expiry")
}

func TestStartLoyaltyScheduler_OptionalJobs(t *testing.T) {
	deps := schedulerDeps(t)
	exporter := &countingExporter{}
	syncer := &countingSyncer{}
	deps.Exporter = exporter
	deps.ProfileSync = syncer

	sched, err := StartLoyaltyScheduler(context.Background(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	assert.Len(t, sched.Jobs(), 4)
	assert.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 10*time.Millisecond,
		"profile sync runs once at start")
	assert.Zero(t, exporter.calls.Load(), "export waits for 02:00 UTC")
}
