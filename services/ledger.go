package services

import (
	"encoding/json"
	"fmt"
	"time"

	"bean-loyalty/models"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

var printer = message.NewPrinter(language.English)

// ledgerEntry describes the activity row written alongside a balance change.
type ledgerEntry struct {
	Type        models.ActivityType
	Description string
	Metadata    map[string]interface{}
}

// applyPoints changes a customer's balance by delta and appends the matching
// activity. Must run inside a transaction: the balance, tier and activity
// rows commit together or not at all. customer is reloaded on success.
//
// Earning raises balance and lifetime total. Spending only lowers the balance
// and fails with ErrInsufficientPoints rather than going negative.
func applyPoints(tx *gorm.DB, customer *models.Customer, delta int64, entry ledgerEntry) error {
	switch {
	case delta > 0:
		res := tx.Model(&models.Customer{}).
			Where("id = ?", customer.ID).
			Updates(map[string]interface{}{
				"points_balance":      gorm.Expr("points_balance + ?", delta),
				"total_points_earned": gorm.Expr("total_points_earned + ?", delta),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("customer %s: %w", customer.ID, ErrNotFound)
		}
	case delta < 0:
		cost := -delta
		res := tx.Model(&models.Customer{}).
			Where("id = ? AND points_balance >= ?", customer.ID, cost).
			Update("points_balance", gorm.Expr("points_balance - ?", cost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s points needed", ErrInsufficientPoints, printer.Sprintf("%d", cost))
		}
	}

	if err := tx.First(customer, "id = ?", customer.ID).Error; err != nil {
		return err
	}

	if err := appendActivity(tx, customer, delta, entry); err != nil {
		return err
	}
	_, err := syncTier(tx, customer)
	return err
}

// syncTier writes the tier derived from total_points_earned when it differs
// from the stored one, and logs a tier_upgraded activity for upgrades.
func syncTier(tx *gorm.DB, customer *models.Customer) (bool, error) {
	tier := CalculateTier(customer.TotalPointsEarned)
	if tier == customer.Tier {
		return false, nil
	}
	previous := customer.Tier
	now := time.Now().UTC()
	if err := tx.Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Updates(map[string]interface{}{"tier": tier, "last_tier_change_at": now}).Error; err != nil {
		return false, err
	}
	customer.Tier = tier
	customer.LastTierChangeAt = &now

	if tierRank(tier) > tierRank(previous) {
		entry := ledgerEntry{
			Type:        models.ActivityTierUpgraded,
			Description: fmt.Sprintf("Reached %s tier (%d%% off every order)", tier, TierDiscount(tier)),
			Metadata:    map[string]interface{}{"from": previous, "to": tier},
		}
		if err := appendActivity(tx, customer, 0, entry); err != nil {
			return false, err
		}
	}
	return true, nil
}

func appendActivity(tx *gorm.DB, customer *models.Customer, delta int64, entry ledgerEntry) error {
	metadata := models.JSONText("{}")
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encode activity metadata: %w", err)
		}
		metadata = models.JSONText(raw)
	}
	return tx.Create(&models.Activity{
		ID:           uuid.NewString(),
		CustomerID:   customer.ID,
		UserEmail:    customer.Email,
		ActionType:   entry.Type,
		Description:  entry.Description,
		PointsAmount: delta,
		Metadata:     metadata,
	}).Error
}
