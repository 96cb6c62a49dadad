package models

import "time"

// Referral records a credited referral. One row per referred customer, ever.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string `gorm:"type:uuid;index;not null" json:"referrer_id"`       // Customer.ID
	ReferredID string `gorm:"type:uuid;uniqueIndex;not null" json:"referred_id"` // Customer.ID

	ReferralCodeUsed string    `gorm:"not null" json:"referral_code_used"`
	PointsAwarded    int64     `json:"points_awarded" gorm:"default:0"`
	AwardedAt        time.Time `json:"awarded_at"`

	Timestamps
}
