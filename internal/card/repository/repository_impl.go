package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/card/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, card *domain.LoyaltyCard) error {
	return db.WithContext(ctx).Create(card).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.LoyaltyCard, error) {
	var card domain.LoyaltyCard
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *repo) FindByPair(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID) (*domain.LoyaltyCard, error) {
	var card domain.LoyaltyCard
	err := db.WithContext(ctx).
		Where("merchant_id = ? AND customer_id = ?", merchantID, customerID).
		Take(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (r *repo) UpdateCounter(ctx context.Context, db *gorm.DB, id snowflake.ID, fromVersion int64, stamps, cycle int, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.LoyaltyCard{}).
		Where("id = ? AND version = ?", id, fromVersion).
		Updates(map[string]any{
			"current_stamps": stamps,
			"cycle":          cycle,
			"version":        fromVersion + 1,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
