package models

import (
	"time"

	gorm "gorm.io/gorm"
)

type RewardCategory string

const (
	RewardCategoryDrink    RewardCategory = "drink"
	RewardCategoryFood     RewardCategory = "food"
	RewardCategoryMerch    RewardCategory = "merch"
	RewardCategoryDiscount RewardCategory = "discount"
)

// RewardStatus indicates the publishing status of the reward
type RewardStatus string

const (
	RewardStatusDraft     RewardStatus = "draft"
	RewardStatusPublished RewardStatus = "published"
	RewardStatusArchived  RewardStatus = "archived"
)

// Reward is a catalog item customers exchange points for.
type Reward struct {
	ID          string         `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Category    RewardCategory `gorm:"type:varchar(16);not null" json:"category"`
	Description string         `gorm:"type:text" json:"description"`
	ImageURL    string         `gorm:"type:text" json:"image_url"`
	Emoji       string         `gorm:"size:10" json:"emoji"`
	PointsCost  int64          `gorm:"not null" json:"points_cost"`
	Status      RewardStatus   `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionFulfilled RedemptionStatus = "fulfilled"
)

// Redemption is a reward bought with points; Code is shown to staff at the counter.
type Redemption struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string           `gorm:"uniqueIndex;size:16;not null" json:"code"`
	CustomerID  string           `gorm:"type:uuid;index;not null" json:"customer_id"`
	UserEmail   string           `gorm:"not null" json:"user_email"`
	RewardID    string           `gorm:"type:uuid;index;not null" json:"reward_id"`
	RewardTitle string           `json:"reward_title"`
	PointsSpent int64            `gorm:"not null" json:"points_spent"`
	Status      RedemptionStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	FulfilledBy string           `json:"fulfilled_by,omitempty"`
	FulfilledAt *time.Time       `json:"fulfilled_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
}
