package models

import (
	"time"

	"gorm.io/gorm"
)

// Tier is a loyalty level derived from lifetime points.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// Customer is the loyalty profile of one authenticated user.
type Customer struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // identity forwarded by the gateway
	Email          string `gorm:"index;not null" json:"email"`
	FullName       string `json:"full_name,omitempty"`

	ReferralCode string `gorm:"uniqueIndex;size:16;not null" json:"referral_code"`
	ReferredBy   string `json:"referred_by,omitempty"` // referrer's email

	PointsBalance     int64 `gorm:"not null;default:0" json:"points_balance"`
	TotalPointsEarned int64 `gorm:"not null;default:0" json:"total_points_earned"` // never decremented
	Tier              Tier  `gorm:"type:varchar(16);not null;default:'Bronze'" json:"tier"`
	ReferralCount     int64 `gorm:"not null;default:0" json:"referral_count"`
	CupsRedeemed      int64 `gorm:"not null;default:0" json:"cups_redeemed"`

	LastTierChangeAt *time.Time `json:"last_tier_change_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
