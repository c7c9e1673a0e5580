package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/redemption/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, redemption *domain.Redemption) error {
	return db.WithContext(ctx).Create(redemption).Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, cardID snowflake.ID, tier, cycle int) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("card_id = ? AND tier = ? AND cycle = ?", cardID, tier, cycle).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID) ([]*domain.Redemption, error) {
	var redemptions []*domain.Redemption
	err := db.WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("card_id = ?", cardID).
		Order("redeemed_at desc, id desc").
		Find(&redemptions).Error
	if err != nil {
		return nil, err
	}
	return redemptions, nil
}
