package services

import (
	"context"
	"time"

	"bean-loyalty/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ActivityService struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewActivityService(db *gorm.DB, log *zap.Logger) *ActivityService {
	return &ActivityService{DB: db, log: log}
}

// ListForUser returns the newest activity of a gateway user.
func (s *ActivityService) ListForUser(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []models.Activity
	err := s.DB.WithContext(ctx).
		Joins("JOIN customers ON customers.id = activities.customer_id").
		Where("customers.external_user_id = ?", userID).
		Order("activities.created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Since returns a user's activity created at or after from, oldest first.
func (s *ActivityService) Since(ctx context.Context, userID string, from time.Time) ([]models.Activity, error) {
	var out []models.Activity
	err := s.DB.WithContext(ctx).
		Joins("JOIN customers ON customers.id = activities.customer_id").
		Where("customers.external_user_id = ? AND activities.created_at >= ?", userID, from).
		Order("activities.created_at ASC, activities.id ASC").
		Find(&out).Error
	return out, err
}

// Between returns all activity in [from, to), oldest first.
func (s *ActivityService) Between(ctx context.Context, from, to time.Time) ([]models.Activity, error) {
	var out []models.Activity
	err := s.DB.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
