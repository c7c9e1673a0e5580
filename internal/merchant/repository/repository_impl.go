package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/merchant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, merchant *domain.Merchant) error {
	return db.WithContext(ctx).Create(merchant).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&merchant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *repo) FindByScanCode(ctx context.Context, db *gorm.DB, scanCode string) (*domain.Merchant, error) {
	var merchant domain.Merchant
	err := db.WithContext(ctx).
		Where("scan_code = ?", scanCode).
		Take(&merchant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

func (r *repo) UpdateLoyaltyConfig(ctx context.Context, db *gorm.DB, merchant *domain.Merchant) error {
	return db.WithContext(ctx).
		Model(&domain.Merchant{}).
		Where("id = ?", merchant.ID).
		Updates(map[string]any{
			"stamps_required":          merchant.StampsRequired,
			"reward_description":       merchant.RewardDescription,
			"tier2_enabled":            merchant.Tier2Enabled,
			"tier2_stamps_required":    merchant.Tier2StampsRequired,
			"tier2_reward_description": merchant.Tier2RewardDescription,
			"updated_at":               merchant.UpdatedAt,
		}).Error
}

func (r *repo) TouchModerationReminder(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Merchant{}).
		Where("id = ?", merchantID).
		Update("last_moderation_reminder_at", at).Error
}

func (r *repo) InsertBan(ctx context.Context, db *gorm.DB, ban *domain.Ban) error {
	return db.WithContext(ctx).Create(ban).Error
}

func (r *repo) DeleteBan(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("merchant_id = ? AND customer_id = ?", merchantID, customerID).
		Delete(&domain.Ban{}).Error
}

func (r *repo) BanExists(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Ban{}).
		Where("merchant_id = ? AND customer_id = ?", merchantID, customerID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
