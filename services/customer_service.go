package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bean-loyalty/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	WelcomeBonusPoints  int64 = 50
	ReferralBonusPoints int64 = 100
	referralCodePrefix        = "BEAN"
)

type CustomerService struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewCustomerService(db *gorm.DB, log *zap.Logger) *CustomerService {
	return &CustomerService{DB: db, log: log}
}

// EnsureCustomer returns the caller's loyalty profile, creating it on the
// first visit with the welcome bonus. When the profile is created and refCode
// is set, the referrer is credited in the same transaction. created reports
// whether this call made the profile.
func (s *CustomerService) EnsureCustomer(ctx context.Context, actor Actor, refCode string) (customer *models.Customer, created bool, err error) {
	if !actor.Authenticated() {
		return nil, false, ErrUnauthorized
	}

	existing, err := s.findByUser(s.DB.WithContext(ctx), actor.UserID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	fresh := &models.Customer{
		ID:             uuid.NewString(),
		ExternalUserID: actor.UserID,
		Email:          actor.Email,
		ReferralCode:   newReferralCode(),
		Tier:           models.TierBronze,
	}
	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fresh).Error; err != nil {
			return err
		}
		if err := applyPoints(tx, fresh, WelcomeBonusPoints, ledgerEntry{
			Type:        models.ActivityPointsEarned,
			Description: "Welcome bonus",
			Metadata:    map[string]interface{}{"source": "welcome"},
		}); err != nil {
			return err
		}
		if refCode != "" {
			return s.creditReferral(tx, fresh, refCode)
		}
		return nil
	})
	if txErr != nil {
		// A concurrent first visit may have won the unique external_user_id insert.
		if winner, findErr := s.findByUser(s.DB.WithContext(ctx), actor.UserID); findErr == nil {
			return winner, false, nil
		}
		s.log.Error("[CUSTOMER] ❌ failed to create customer profile",
			zap.String("user_id", actor.UserID), zap.Error(txErr))
		return nil, false, txErr
	}

	s.log.Info("[CUSTOMER] ✅ created customer profile",
		zap.String("user_id", actor.UserID),
		zap.String("referral_code", fresh.ReferralCode),
		zap.Bool("referred", fresh.ReferredBy != ""),
	)
	return fresh, true, nil
}

// GetCustomer returns the profile for a gateway user ID.
func (s *CustomerService) GetCustomer(ctx context.Context, userID string) (*models.Customer, error) {
	return s.findByUser(s.DB.WithContext(ctx), userID)
}

// GrantPoints adjusts a customer's balance manually (service recovery,
// promotions, corrections). Positive amounts also count towards the tier;
// negative amounts are debits and fail with ErrInsufficientPoints rather
// than overdrawing.
func (s *CustomerService) GrantPoints(ctx context.Context, actor Actor, userID string, points int64, reason string) (*models.Customer, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if points == 0 {
		return nil, fmt.Errorf("%w: points must not be zero", ErrBadRequest)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Bonus points"
		if points < 0 {
			reason = "Points correction"
		}
	}

	var customer *models.Customer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.findByUser(tx, userID)
		if err != nil {
			return err
		}
		customer = c
		return applyPoints(tx, customer, points, ledgerEntry{
			Type:        models.ActivityPointsEarned,
			Description: reason,
			Metadata:    map[string]interface{}{"source": "grant", "granted_by": actor.Label()},
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("[CUSTOMER] points granted",
		zap.String("user_id", userID), zap.Int64("points", points), zap.String("by", actor.Label()))
	return customer, nil
}

// ReconcileTiers fixes stored tiers that disagree with lifetime points.
// Rows written through the ledger are always in sync; this catches imports
// and manual edits.
func (s *CustomerService) ReconcileTiers(ctx context.Context) (int, error) {
	var fixed int
	var batch []models.Customer
	res := s.DB.WithContext(ctx).FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			c := batch[i]
			if CalculateTier(c.TotalPointsEarned) == c.Tier {
				continue
			}
			err := s.DB.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
				_, err := syncTier(inner, &c)
				return err
			})
			if err != nil {
				return fmt.Errorf("reconcile tier for %s: %w", c.ID, err)
			}
			fixed++
		}
		return nil
	})
	if res.Error != nil {
		return fixed, res.Error
	}
	return fixed, nil
}

func (s *CustomerService) findByUser(db *gorm.DB, userID string) (*models.Customer, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	var c models.Customer
	if err := db.Where("external_user_id = ?", userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer profile: %w", ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func newReferralCode() string {
	return referralCodePrefix + shortToken(6)
}

// shortToken returns n upper-case hex characters from a random UUID.
func shortToken(n int) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:n]
}
