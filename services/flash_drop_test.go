package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bean-loyalty/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newDropFixture(t *testing.T) (*gorm.DB, *FlashDropService, *CustomerService) {
	db, customers, _ := newServices(t)
	return db, NewFlashDropService(db, zap.NewNop()), customers
}

func createDrop(t *testing.T, drops *FlashDropService, cost, qty int64) *models.FlashDrop {
	t.Helper()
	now := drops.now()
	d, err := drops.CreateFlashDrop(context.Background(), staff, FlashDropInput{
		Title:      "Limited Geisha Pour-Over",
		PointsCost: cost,
		Quantity:   qty,
		StartsAt:   now.Add(-time.Minute),
		EndsAt:     now.Add(time.Hour),
	})
	require.NoError(t, err)
	return d
}

func TestCreateFlashDrop_Validation(t *testing.T) {
	_, drops, _ := newDropFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := drops.CreateFlashDrop(ctx, customerActor("ana"), FlashDropInput{Title: "x", Quantity: 1, EndsAt: now.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrForbidden)

	for _, in := range []FlashDropInput{
		{Title: "", Quantity: 1, EndsAt: now.Add(time.Hour)},
		{Title: "x", Quantity: 0, EndsAt: now.Add(time.Hour)},
		{Title: "x", Quantity: 1, PointsCost: -1, EndsAt: now.Add(time.Hour)},
		{Title: "x", Quantity: 1, StartsAt: now, EndsAt: now.Add(-time.Hour)},
	} {
		_, err := drops.CreateFlashDrop(ctx, staff, in)
		assert.ErrorIs(t, err, ErrBadRequest, "%+v", in)
	}

	d, err := drops.CreateFlashDrop(ctx, staff, FlashDropInput{Title: "Free Cortado", Quantity: 3, EndsAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "free-cortado", d.Slug)
	assert.Equal(t, int64(3), d.QuantityRemaining)
	assert.Equal(t, models.FlashDropActive, d.Status)
}

func TestClaimFlashDrop(t *testing.T) {
	db, drops, customers := newDropFixture(t)
	ctx := context.Background()
	ana := mustCustomer(t, customers, customerActor("ana"), "")
	d := createDrop(t, drops, 20, 5)

	claim, updated, err := drops.ClaimFlashDrop(ctx, customerActor("ana"), d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, claim.FlashDropID)
	assert.Equal(t, int64(20), claim.PointsSpent)
	assert.Equal(t, int64(30), updated.PointsBalance)

	_, _, err = drops.ClaimFlashDrop(ctx, customerActor("ana"), d.ID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	var stored models.FlashDrop
	require.NoError(t, db.First(&stored, "id = ?", d.ID).Error)
	assert.Equal(t, int64(4), stored.QuantityRemaining)

	acts := activitiesOf(t, db, ana.ID)
	assert.Equal(t, models.ActivityFlashDropClaimed, acts[len(acts)-1].ActionType)
	assert.Equal(t, int64(-20), acts[len(acts)-1].PointsAmount)
	requireLedgerBalanced(t, db, ana.ID)
}

func TestClaimFlashDrop_InsufficientPointsKeepsStock(t *testing.T) {
	db, drops, customers := newDropFixture(t)
	mustCustomer(t, customers, customerActor("ana"), "")
	d := createDrop(t, drops, 500, 1)

	_, _, err := drops.ClaimFlashDrop(context.Background(), customerActor("ana"), d.ID)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	var stored models.FlashDrop
	require.NoError(t, db.First(&stored, "id = ?", d.ID).Error)
	assert.Equal(t, int64(1), stored.QuantityRemaining)
}

func TestClaimFlashDrop_NotLive(t *testing.T) {
	_, drops, customers := newDropFixture(t)
	mustCustomer(t, customers, customerActor("ana"), "")
	d := createDrop(t, drops, 10, 5)

	_, _, err := drops.ClaimFlashDrop(context.Background(), customerActor("ana"), "not-a-uuid")
	assert.ErrorIs(t, err, ErrBadRequest)

	later := d.EndsAt.Add(time.Second)
	drops.now = func() time.Time { return later }
	_, _, err = drops.ClaimFlashDrop(context.Background(), customerActor("ana"), d.ID)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestClaimFlashDrop_NeverOversells(t *testing.T) {
	db, drops, customers := newDropFixture(t)
	names := []string{"ana", "ben", "cai", "dee", "eli", "fay", "gus", "hal"}
	for _, n := range names {
		mustCustomer(t, customers, customerActor(n), "")
	}
	d := createDrop(t, drops, 10, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, soldOut int
	for _, n := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, _, err := drops.ClaimFlashDrop(context.Background(), customerActor(name), d.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrSoldOut):
				soldOut++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(n)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, len(names)-3, soldOut)
	assert.Equal(t, 409, HTTPStatus(ErrSoldOut))

	var claims int64
	require.NoError(t, db.Model(&models.FlashDropClaim{}).Where("flash_drop_id = ?", d.ID).Count(&claims).Error)
	assert.Equal(t, int64(3), claims)

	var stored models.FlashDrop
	require.NoError(t, db.First(&stored, "id = ?", d.ID).Error)
	assert.Zero(t, stored.QuantityRemaining)
}

func TestEndExpired(t *testing.T) {
	db, drops, _ := newDropFixture(t)
	ctx := context.Background()
	d := createDrop(t, drops, 10, 5)

	n, err := drops.EndExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	live, err := drops.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 1)

	later := d.EndsAt.Add(time.Minute)
	drops.now = func() time.Time { return later }
	n, err = drops.EndExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var stored models.FlashDrop
	require.NoError(t, db.First(&stored, "id = ?", d.ID).Error)
	assert.Equal(t, models.FlashDropEnded, stored.Status)

	live, err = drops.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}
