package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bean-loyalty/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPointsForAmount(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{0, 0},
		{-250, 0},
		{99.99, 0},
		{100, 1},
		{999, 9},
		{1000, 10},
		{1500, 15},
		{1599.5, 15},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PointsForAmount(tc.amount), "amount %.2f", tc.amount)
	}
}

func newSale(t *testing.T, sales *SaleService, amount float64) *models.StoreSale {
	t.Helper()
	sale, err := sales.CreateSale(context.Background(), staff, SaleInput{TotalAmount: amount, Items: "2x flat white"})
	require.NoError(t, err)
	return sale
}

func TestProcessBillScan_AwardsPoints(t *testing.T) {
	db, customers, sales := newServices(t)
	c := mustCustomer(t, customers, customerActor("ana"), "")
	sale := newSale(t, sales, 1500)

	res, err := sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.PointsAwarded)
	assert.Equal(t, int64(65), res.NewBalance)
	assert.Equal(t, models.TierBronze, res.Tier)
	assert.Equal(t, sale.BillNumber, res.BillNumber)

	stored, err := sales.GetSaleByQR(context.Background(), sale.QRCodeID)
	require.NoError(t, err)
	assert.True(t, stored.IsScanned)
	assert.Equal(t, "ana@example.com", stored.ScannedBy)
	assert.NotNil(t, stored.ScannedAt)
	assert.Equal(t, int64(15), stored.PointsAwarded)

	acts := activitiesOf(t, db, c.ID)
	require.Len(t, acts, 2)
	assert.Equal(t, int64(15), acts[1].PointsAmount)
	assert.Contains(t, acts[1].Description, sale.BillNumber)
	requireLedgerBalanced(t, db, c.ID)
}

func TestProcessBillScan_SmallBillStillConsumed(t *testing.T) {
	db, customers, sales := newServices(t)
	c := mustCustomer(t, customers, customerActor("ana"), "")
	sale := newSale(t, sales, 99)

	res, err := sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	require.NoError(t, err)
	assert.Zero(t, res.PointsAwarded)
	assert.Equal(t, int64(50), res.NewBalance)

	_, err = sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	requireLedgerBalanced(t, db, c.ID)
}

func TestProcessBillScan_SecondScanRejected(t *testing.T) {
	db, customers, sales := newServices(t)
	ana := mustCustomer(t, customers, customerActor("ana"), "")
	mustCustomer(t, customers, customerActor("ben"), "")
	sale := newSale(t, sales, 1000)

	_, err := sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	require.NoError(t, err)

	_, err = sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.Equal(t, 400, HTTPStatus(err))

	_, err = sales.ProcessBillScan(context.Background(), customerActor("ben"), sale.QRCodeID)
	assert.ErrorIs(t, err, ErrAlreadyRedeemed)

	assert.Equal(t, int64(60), reload(t, db, ana.ID).PointsBalance)
}

func TestProcessBillScan_Rejections(t *testing.T) {
	_, customers, sales := newServices(t)
	mustCustomer(t, customers, customerActor("ana"), "")
	sale := newSale(t, sales, 500)
	ctx := context.Background()

	_, err := sales.ProcessBillScan(ctx, Actor{}, sale.QRCodeID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = sales.ProcessBillScan(ctx, customerActor("ana"), "   ")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = sales.ProcessBillScan(ctx, customerActor("ana"), "not-a-real-code")
	assert.ErrorIs(t, err, ErrNotFound)

	// signed in but never opened the app: no profile
	_, err = sales.ProcessBillScan(ctx, customerActor("ghost"), sale.QRCodeID)
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := sales.GetSaleByQR(ctx, sale.QRCodeID)
	require.NoError(t, err)
	assert.False(t, stored.IsScanned, "failed scans must not consume the bill")
}

func TestProcessBillScan_ConcurrentScansPayOnce(t *testing.T) {
	db, customers, sales := newServices(t)
	names := []string{"ana", "ben", "cai", "dee", "eli", "fay"}
	for _, n := range names {
		mustCustomer(t, customers, customerActor(n), "")
	}
	sale := newSale(t, sales, 2500)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, already int
	for _, n := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := sales.ProcessBillScan(context.Background(), customerActor(name), sale.QRCodeID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrAlreadyRedeemed):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(n)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, len(names)-1, already)

	var earned int64
	require.NoError(t, db.Model(&models.Activity{}).
		Where("metadata LIKE ?", "%"+sale.ID+"%").
		Count(&earned).Error)
	assert.Equal(t, int64(1), earned)
}

// A second scanner that marks the bill between our read and our write must
// win: the conditional update sees no unscanned row and nothing is credited.
func TestProcessBillScan_LosesRaceAfterLookup(t *testing.T) {
	db, customers, sales := newServices(t)
	c := mustCustomer(t, customers, customerActor("ana"), "")
	sale := newSale(t, sales, 2000)

	armed := true
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:rival_scan", func(d *gorm.DB) {
		if !armed || d.Statement.Table != "store_sales" {
			return
		}
		armed = false
		rival := d.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE store_sales SET is_scanned = ?, scanned_by = ? WHERE id = ?", true, "rival@example.com", sale.ID)
		require.NoError(t, rival.Error)
	}))

	_, err := sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	require.ErrorIs(t, err, ErrAlreadyRedeemed)
	assert.False(t, armed, "rival scan did not run")

	stored := reload(t, db, c.ID)
	assert.Equal(t, int64(50), stored.PointsBalance)
	assert.Equal(t, int64(50), stored.TotalPointsEarned)
	assert.Len(t, activitiesOf(t, db, c.ID), 1, "only the welcome bonus")
}

func TestProcessBillScan_RollsBackOnLedgerFailure(t *testing.T) {
	db, customers, sales := newServices(t)
	c := mustCustomer(t, customers, customerActor("ana"), "")
	sale := newSale(t, sales, 3000)

	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_activity", func(d *gorm.DB) {
		if d.Statement.Table == "activities" {
			_ = d.AddError(errors.New("disk full"))
		}
	}))

	_, err := sales.ProcessBillScan(context.Background(), customerActor("ana"), sale.QRCodeID)
	require.Error(t, err)
	assert.Equal(t, 500, HTTPStatus(err))

	stored, err := sales.GetSaleByQR(context.Background(), sale.QRCodeID)
	require.NoError(t, err)
	assert.False(t, stored.IsScanned)
	assert.Equal(t, int64(50), reload(t, db, c.ID).PointsBalance)
}

func TestCreateSale(t *testing.T) {
	_, _, sales := newServices(t)
	ctx := context.Background()

	_, err := sales.CreateSale(ctx, customerActor("ana"), SaleInput{TotalAmount: 100})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = sales.CreateSale(ctx, staff, SaleInput{TotalAmount: -1})
	assert.ErrorIs(t, err, ErrBadRequest)

	sale, err := sales.CreateSale(ctx, staff, SaleInput{BillNumber: "B-1001", TotalAmount: 420})
	require.NoError(t, err)
	assert.Equal(t, "B-1001", sale.BillNumber)
	assert.NotEmpty(t, sale.QRCodeID)
	assert.Equal(t, staff.Email, sale.CreatedBy)
	assert.False(t, sale.IsScanned)

	_, err = sales.CreateSale(ctx, staff, SaleInput{BillNumber: "B-1001", TotalAmount: 10})
	assert.ErrorIs(t, err, ErrBadRequest)

	auto, err := sales.CreateSale(ctx, staff, SaleInput{TotalAmount: 10})
	require.NoError(t, err)
	assert.Regexp(t, `^B\d{8}-[0-9A-F]{6}$`, auto.BillNumber)
	assert.NotEqual(t, sale.QRCodeID, auto.QRCodeID)

	unscanned := false
	list, err := sales.ListSales(ctx, SaleFilter{Scanned: &unscanned})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
