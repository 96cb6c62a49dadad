package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bean-loyalty/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// creditReferral credits the owner of code for referring the freshly created
// customer. Unknown codes and self-referrals are silently ignored. The
// Referral row's unique referred_id caps credits at one per referred customer.
func (s *CustomerService) creditReferral(tx *gorm.DB, referred *models.Customer, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	var referrer models.Customer
	if err := tx.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Info("[REFERRAL] unknown referral code, skipping", zap.String("code", code))
			return nil
		}
		return err
	}
	if referrer.ID == referred.ID {
		return nil
	}

	var already int64
	if err := tx.Model(&models.Referral{}).Where("referred_id = ?", referred.ID).Count(&already).Error; err != nil {
		return err
	}
	if already > 0 {
		return nil
	}

	if err := tx.Create(&models.Referral{
		ID:               uuid.NewString(),
		ReferrerID:       referrer.ID,
		ReferredID:       referred.ID,
		ReferralCodeUsed: code,
		PointsAwarded:    ReferralBonusPoints,
		AwardedAt:        time.Now().UTC(),
	}).Error; err != nil {
		return fmt.Errorf("record referral: %w", err)
	}

	if err := tx.Model(&models.Customer{}).
		Where("id = ?", referred.ID).
		Update("referred_by", referrer.Email).Error; err != nil {
		return err
	}
	referred.ReferredBy = referrer.Email

	if err := tx.Model(&models.Customer{}).
		Where("id = ?", referrer.ID).
		Update("referral_count", gorm.Expr("referral_count + ?", 1)).Error; err != nil {
		return err
	}

	who := referred.Email
	if who == "" {
		who = "A friend"
	}
	if err := applyPoints(tx, &referrer, ReferralBonusPoints, ledgerEntry{
		Type:        models.ActivityReferral,
		Description: fmt.Sprintf("%s joined with your referral code", who),
		Metadata:    map[string]interface{}{"referred_customer_id": referred.ID, "code": code},
	}); err != nil {
		return err
	}

	s.log.Info("[REFERRAL] 🎉 referral credited",
		zap.String("referrer_id", referrer.ID),
		zap.String("referred_id", referred.ID),
		zap.Int64("points", ReferralBonusPoints),
	)
	return nil
}
