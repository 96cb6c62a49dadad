package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bean-loyalty/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FlashDropService struct {
	DB  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewFlashDropService(db *gorm.DB, log *zap.Logger) *FlashDropService {
	return &FlashDropService{DB: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

type FlashDropInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PointsCost  int64     `json:"points_cost"`
	Quantity    int64     `json:"quantity"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

// CreateFlashDrop schedules a drop (admin only). A zero StartsAt means now.
func (s *FlashDropService) CreateFlashDrop(ctx context.Context, actor Actor, in FlashDropInput) (*models.FlashDrop, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrBadRequest)
	case in.PointsCost < 0:
		return nil, fmt.Errorf("%w: points_cost must not be negative", ErrBadRequest)
	case in.Quantity <= 0:
		return nil, fmt.Errorf("%w: quantity must be positive", ErrBadRequest)
	}
	if in.StartsAt.IsZero() {
		in.StartsAt = s.now()
	}
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("%w: ends_at must be after starts_at", ErrBadRequest)
	}

	db := s.DB.WithContext(ctx)
	dropSlug, err := uniqueSlug(db, &models.FlashDrop{}, in.Title)
	if err != nil {
		return nil, err
	}
	drop := &models.FlashDrop{
		ID:                uuid.NewString(),
		Title:             in.Title,
		Slug:              dropSlug,
		Description:       in.Description,
		PointsCost:        in.PointsCost,
		QuantityTotal:     in.Quantity,
		QuantityRemaining: in.Quantity,
		StartsAt:          in.StartsAt.UTC(),
		EndsAt:            in.EndsAt.UTC(),
		Status:            models.FlashDropActive,
	}
	if err := db.Create(drop).Error; err != nil {
		return nil, err
	}
	s.log.Info("[FLASH_DROP] ⚡ drop created",
		zap.String("slug", drop.Slug), zap.Int64("quantity", drop.QuantityTotal), zap.Time("ends_at", drop.EndsAt))
	return drop, nil
}

// ListActive returns drops that are live right now.
func (s *FlashDropService) ListActive(ctx context.Context) ([]models.FlashDrop, error) {
	now := s.now()
	var drops []models.FlashDrop
	err := s.DB.WithContext(ctx).
		Where("status = ? AND starts_at <= ? AND ends_at > ?", models.FlashDropActive, now, now).
		Order("ends_at ASC").
		Find(&drops).Error
	return drops, err
}

// ClaimFlashDrop claims one unit for the caller. Stock is decremented with a
// conditional update so a drop never over-allocates.
func (s *FlashDropService) ClaimFlashDrop(ctx context.Context, actor Actor, dropID string) (*models.FlashDropClaim, *models.Customer, error) {
	if !actor.Authenticated() {
		return nil, nil, ErrUnauthorized
	}
	if _, err := uuid.Parse(dropID); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid flash drop ID", ErrBadRequest)
	}

	now := s.now()
	var claim *models.FlashDropClaim
	var customer models.Customer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var drop models.FlashDrop
		if err := tx.First(&drop, "id = ?", dropID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: flash drop not found", ErrNotFound)
			}
			return err
		}
		if drop.Status != models.FlashDropActive || now.Before(drop.StartsAt) || !now.Before(drop.EndsAt) {
			return fmt.Errorf("%w: flash drop is not live", ErrBadRequest)
		}

		if err := tx.Where("external_user_id = ?", actor.UserID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: customer profile not found", ErrNotFound)
			}
			return err
		}

		var prior int64
		if err := tx.Model(&models.FlashDropClaim{}).
			Where("flash_drop_id = ? AND customer_id = ?", drop.ID, customer.ID).
			Count(&prior).Error; err != nil {
			return err
		}
		if prior > 0 {
			return fmt.Errorf("%w: you already claimed this drop", ErrAlreadyRedeemed)
		}

		res := tx.Model(&models.FlashDrop{}).
			Where("id = ? AND quantity_remaining > 0", drop.ID).
			Update("quantity_remaining", gorm.Expr("quantity_remaining - ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s is gone", ErrSoldOut, drop.Title)
		}

		if err := applyPoints(tx, &customer, -drop.PointsCost, ledgerEntry{
			Type:        models.ActivityFlashDropClaimed,
			Description: fmt.Sprintf("Claimed flash drop: %s", drop.Title),
			Metadata:    map[string]interface{}{"flash_drop_id": drop.ID},
		}); err != nil {
			return err
		}

		claim = &models.FlashDropClaim{
			ID:          uuid.NewString(),
			FlashDropID: drop.ID,
			CustomerID:  customer.ID,
			PointsSpent: drop.PointsCost,
		}
		return tx.Create(claim).Error
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("[FLASH_DROP] claimed", zap.String("drop_id", dropID), zap.String("user_id", actor.UserID))
	return claim, &customer, nil
}

// EndExpired closes drops whose window has passed.
func (s *FlashDropService) EndExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.FlashDrop{}).
		Where("status = ? AND ends_at <= ?", models.FlashDropActive, s.now()).
		Update("status", models.FlashDropEnded)
	return res.RowsAffected, res.Error
}
