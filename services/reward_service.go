// services/reward_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bean-loyalty/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RewardService struct {
	DB  *gorm.DB
	log *zap.Logger
}

func NewRewardService(db *gorm.DB, log *zap.Logger) *RewardService {
	return &RewardService{DB: db, log: log}
}

// RewardInput is the admin payload for a new catalog item.
type RewardInput struct {
	Title       string                `json:"title"`
	Category    models.RewardCategory `json:"category"`
	Description string                `json:"description"`
	ImageURL    string                `json:"image_url"`
	Emoji       string                `json:"emoji"`
	PointsCost  int64                 `json:"points_cost"`
	Status      models.RewardStatus   `json:"status"`
}

// RewardPatch updates only the fields that are set.
type RewardPatch struct {
	Title       *string                `json:"title"`
	Category    *models.RewardCategory `json:"category"`
	Description *string                `json:"description"`
	ImageURL    *string                `json:"image_url"`
	Emoji       *string                `json:"emoji"`
	PointsCost  *int64                 `json:"points_cost"`
	Status      *models.RewardStatus   `json:"status"`
}

func validCategory(c models.RewardCategory) bool {
	switch c {
	case models.RewardCategoryDrink, models.RewardCategoryFood, models.RewardCategoryMerch, models.RewardCategoryDiscount:
		return true
	}
	return false
}

func validRewardStatus(s models.RewardStatus) bool {
	switch s {
	case models.RewardStatusDraft, models.RewardStatusPublished, models.RewardStatusArchived:
		return true
	}
	return false
}

// CreateReward adds a catalog item (admin only).
func (s *RewardService) CreateReward(ctx context.Context, actor Actor, in RewardInput) (*models.Reward, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrBadRequest)
	}
	if !validCategory(in.Category) {
		return nil, fmt.Errorf("%w: category must be one of drink, food, merch, discount", ErrBadRequest)
	}
	if in.PointsCost <= 0 {
		return nil, fmt.Errorf("%w: points_cost must be positive", ErrBadRequest)
	}
	if in.Status == "" {
		in.Status = models.RewardStatusDraft
	}
	if !validRewardStatus(in.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrBadRequest, in.Status)
	}

	db := s.DB.WithContext(ctx)
	rewardSlug, err := uniqueSlug(db, &models.Reward{}, in.Title)
	if err != nil {
		return nil, err
	}

	reward := &models.Reward{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Slug:        rewardSlug,
		Category:    in.Category,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Emoji:       in.Emoji,
		PointsCost:  in.PointsCost,
		Status:      in.Status,
	}
	if err := db.Create(reward).Error; err != nil {
		s.log.Error("[REWARDS] DB error creating reward", zap.Error(err))
		return nil, err
	}
	return reward, nil
}

// UpdateReward applies a partial update (admin only).
func (s *RewardService) UpdateReward(ctx context.Context, actor Actor, id string, p RewardPatch) (*models.Reward, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	reward, err := s.GetReward(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrBadRequest)
		}
		reward.Title = title
	}
	if p.Category != nil {
		if !validCategory(*p.Category) {
			return nil, fmt.Errorf("%w: invalid category %q", ErrBadRequest, *p.Category)
		}
		reward.Category = *p.Category
	}
	if p.Description != nil {
		reward.Description = *p.Description
	}
	if p.ImageURL != nil {
		reward.ImageURL = *p.ImageURL
	}
	if p.Emoji != nil {
		reward.Emoji = *p.Emoji
	}
	if p.PointsCost != nil {
		if *p.PointsCost <= 0 {
			return nil, fmt.Errorf("%w: points_cost must be positive", ErrBadRequest)
		}
		reward.PointsCost = *p.PointsCost
	}
	if p.Status != nil {
		if !validRewardStatus(*p.Status) {
			return nil, fmt.Errorf("%w: invalid status %q", ErrBadRequest, *p.Status)
		}
		reward.Status = *p.Status
	}

	if err := s.DB.WithContext(ctx).Save(reward).Error; err != nil {
		s.log.Error("[REWARDS] DB error updating reward", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return reward, nil
}

// DeleteReward soft-deletes a catalog item. Existing redemptions keep their title.
func (s *RewardService) DeleteReward(ctx context.Context, actor Actor, id string) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	reward, err := s.GetReward(ctx, id)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Delete(reward).Error
}

func (s *RewardService) GetReward(ctx context.Context, id string) (*models.Reward, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid reward ID", ErrBadRequest)
	}
	var reward models.Reward
	if err := s.DB.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reward not found", ErrNotFound)
		}
		return nil, err
	}
	return &reward, nil
}

// ListRewards returns the catalog, cheapest first. A nil status means published only.
func (s *RewardService) ListRewards(ctx context.Context, status *models.RewardStatus) ([]models.Reward, error) {
	want := models.RewardStatusPublished
	if status != nil {
		want = *status
	}
	var rewards []models.Reward
	err := s.DB.WithContext(ctx).
		Where("status = ?", want).
		Order("points_cost ASC, title ASC").
		Find(&rewards).Error
	return rewards, err
}

// RedeemReward spends points on a published reward and issues a counter code.
func (s *RewardService) RedeemReward(ctx context.Context, actor Actor, rewardID string) (*models.Redemption, *models.Customer, error) {
	if !actor.Authenticated() {
		return nil, nil, ErrUnauthorized
	}
	reward, err := s.GetReward(ctx, rewardID)
	if err != nil {
		return nil, nil, err
	}
	if reward.Status != models.RewardStatusPublished {
		return nil, nil, fmt.Errorf("%w: reward is not available", ErrBadRequest)
	}

	var redemption *models.Redemption
	var customer models.Customer
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("external_user_id = ?", actor.UserID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: customer profile not found", ErrNotFound)
			}
			return err
		}

		redemption = &models.Redemption{
			ID:          uuid.NewString(),
			Code:        "BEAN-" + shortToken(6),
			CustomerID:  customer.ID,
			UserEmail:   customer.Email,
			RewardID:    reward.ID,
			RewardTitle: reward.Title,
			PointsSpent: reward.PointsCost,
			Status:      models.RedemptionPending,
		}

		if err := applyPoints(tx, &customer, -reward.PointsCost, ledgerEntry{
			Type:        models.ActivityRewardRedeemed,
			Description: printer.Sprintf("Redeemed %s for %d points", reward.Title, reward.PointsCost),
			Metadata:    map[string]interface{}{"reward_id": reward.ID, "code": redemption.Code},
		}); err != nil {
			return err
		}

		if reward.Category == models.RewardCategoryDrink {
			if err := tx.Model(&models.Customer{}).
				Where("id = ?", customer.ID).
				Update("cups_redeemed", gorm.Expr("cups_redeemed + ?", 1)).Error; err != nil {
				return err
			}
			customer.CupsRedeemed++
		}

		return tx.Create(redemption).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("[REWARDS] 🎁 reward redeemed",
		zap.String("user_id", actor.UserID),
		zap.String("reward", reward.Title),
		zap.String("code", redemption.Code),
		zap.Int64("balance", customer.PointsBalance),
	)
	return redemption, &customer, nil
}

// FulfilRedemption marks a counter code as handed over. A code can be fulfilled once.
func (s *RewardService) FulfilRedemption(ctx context.Context, actor Actor, code string) (*models.Redemption, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	var redemption models.Redemption
	db := s.DB.WithContext(ctx)
	if err := db.Where("code = ?", code).First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: redemption code not found", ErrNotFound)
		}
		return nil, err
	}

	now := time.Now().UTC()
	res := db.Model(&models.Redemption{}).
		Where("id = ? AND status = ?", redemption.ID, models.RedemptionPending).
		Updates(map[string]interface{}{
			"status":       models.RedemptionFulfilled,
			"fulfilled_by": actor.Label(),
			"fulfilled_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: code %s was already used", ErrAlreadyRedeemed, code)
	}

	redemption.Status = models.RedemptionFulfilled
	redemption.FulfilledBy = actor.Label()
	redemption.FulfilledAt = &now
	return &redemption, nil
}

// ListRedemptions returns the caller's redemptions, newest first.
func (s *RewardService) ListRedemptions(ctx context.Context, actor Actor) ([]models.Redemption, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	var redemptions []models.Redemption
	err := s.DB.WithContext(ctx).
		Joins("JOIN customers ON customers.id = redemptions.customer_id").
		Where("customers.external_user_id = ?", actor.UserID).
		Order("redemptions.created_at DESC").
		Find(&redemptions).Error
	return redemptions, err
}

// uniqueSlug slugifies title and appends a short suffix when the slug is taken.
func uniqueSlug(db *gorm.DB, model interface{}, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = strings.ToLower(shortToken(8))
	}
	candidate := base
	for i := 0; i < 5; i++ {
		var n int64
		if err := db.Unscoped().Model(model).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = base + "-" + strings.ToLower(shortToken(4))
	}
	return "", fmt.Errorf("could not find a free slug for %q", title)
}
