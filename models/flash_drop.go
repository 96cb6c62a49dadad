package models

import "time"

type FlashDropStatus string

const (
	FlashDropActive FlashDropStatus = "active"
	FlashDropEnded  FlashDropStatus = "ended"
)

// FlashDrop is a limited-stock, limited-time item claimable with points.
type FlashDrop struct {
	ID                string          `gorm:"primaryKey;type:uuid" json:"id"`
	Title             string          `gorm:"not null" json:"title"`
	Slug              string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description       string          `gorm:"type:text" json:"description"`
	PointsCost        int64           `gorm:"not null;default:0" json:"points_cost"`
	QuantityTotal     int64           `gorm:"not null" json:"quantity_total"`
	QuantityRemaining int64           `gorm:"not null" json:"quantity_remaining"`
	StartsAt          time.Time       `gorm:"not null" json:"starts_at"`
	EndsAt            time.Time       `gorm:"not null;index" json:"ends_at"`
	Status            FlashDropStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	CreatedAt         time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// FlashDropClaim: one per customer per drop.
type FlashDropClaim struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	FlashDropID string    `gorm:"type:uuid;uniqueIndex:idx_drop_customer;not null" json:"flash_drop_id"`
	CustomerID  string    `gorm:"type:uuid;uniqueIndex:idx_drop_customer;not null" json:"customer_id"`
	PointsSpent int64     `json:"points_spent"`
	ClaimedAt   time.Time `json:"claimed_at" gorm:"autoCreateTime"`
}

// All lists every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Customer{},
		&StoreSale{},
		&Activity{},
		&Referral{},
		&Reward{},
		&Redemption{},
		&FlashDrop{},
		&FlashDropClaim{},
	}
}
