package models

import (
	"time"

	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityPointsEarned     ActivityType = "points_earned"
	ActivityRewardRedeemed   ActivityType = "reward_redeemed"
	ActivityReferral         ActivityType = "referral"
	ActivityFlashDropClaimed ActivityType = "flash_drop_claimed"
	ActivityTierUpgraded     ActivityType = "tier_upgraded"
)

// Activity is an append-only ledger entry. PointsAmount is the signed
// balance change it records.
type Activity struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	CustomerID   string       `gorm:"type:uuid;index;not null" json:"customer_id"`
	UserEmail    string       `gorm:"index;not null" json:"user_email"`
	ActionType   ActivityType `gorm:"type:varchar(32);not null;index" json:"action_type"`
	Description  string       `gorm:"not null" json:"description"`
	PointsAmount int64        `gorm:"not null;default:0" json:"points_amount"`
	Metadata     JSONText     `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.Metadata == "" {
		a.Metadata = "{}"
	}
	return nil
}
