package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"bean-loyalty/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

var staff = Actor{UserID: "staff-1", Email: "barista@bean.coffee", Roles: []string{"staff"}}

func customerActor(name string) Actor {
	return Actor{UserID: "user-" + name, Email: name + "@example.com"}
}

// mustCustomer creates (or loads) the loyalty profile for actor.
func mustCustomer(t *testing.T, svc *CustomerService, actor Actor, ref string) *models.Customer {
	t.Helper()
	c, _, err := svc.EnsureCustomer(context.Background(), actor, ref)
	require.NoError(t, err)
	return c
}

func reload(t *testing.T, db *gorm.DB, id string) models.Customer {
	t.Helper()
	var c models.Customer
	require.NoError(t, db.First(&c, "id = ?", id).Error)
	return c
}

func activitiesOf(t *testing.T, db *gorm.DB, customerID string) []models.Activity {
	t.Helper()
	var out []models.Activity
	require.NoError(t, db.Where("customer_id = ?", customerID).Order("created_at ASC").Find(&out).Error)
	return out
}

// requireLedgerBalanced asserts points_balance equals the sum of the customer's activity deltas.
func requireLedgerBalanced(t *testing.T, db *gorm.DB, customerID string) {
	t.Helper()
	var sum int64
	require.NoError(t, db.Model(&models.Activity{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(points_amount), 0)").
		Scan(&sum).Error)
	c := reload(t, db, customerID)
	require.Equal(t, c.PointsBalance, sum, "balance and activity ledger disagree")
}

func newServices(t *testing.T) (*gorm.DB, *CustomerService, *SaleService) {
	db := newTestDB(t)
	log := zap.NewNop()
	return db, NewCustomerService(db, log), NewSaleService(db, log)
}
