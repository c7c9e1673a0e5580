package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/visit/domain"
	"github.com/smallbiznis/punchcard/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, visit *domain.Visit) error {
	return db.WithContext(ctx).Create(visit).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Visit, error) {
	var visit domain.Visit
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&visit).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &visit, nil
}

func (r *repo) ListByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID, page pagination.Pagination) ([]*domain.Visit, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Where("card_id = ?", cardID)

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err == nil && cursor != nil && cursor.Timestamp != "" {
			ts, tsErr := time.Parse(time.RFC3339Nano, cursor.Timestamp)
			if tsErr == nil {
				id, _ := snowflake.ParseString(cursor.ID)
				stmt = stmt.Where("(visited_at < ?) OR (visited_at = ? AND id < ?)", ts, ts, id)
			}
		}
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 20
	}

	var visits []*domain.Visit
	err := stmt.
		Order("visited_at desc, id desc").
		Limit(limit + 1).
		Find(&visits).Error
	if err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, limit int) ([]*domain.Visit, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Where("merchant_id = ? AND status = ?", merchantID, domain.StatusPending).
		Order("visited_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var visits []*domain.Visit
	if err := stmt.Find(&visits).Error; err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *repo) CountSameDay(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Where("merchant_id = ? AND customer_id = ?", merchantID, customerID).
		Where("status <> ?", domain.StatusRejected).
		Where("visited_at >= ? AND visited_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *repo) Moderate(ctx context.Context, db *gorm.DB, visitID snowflake.ID, status domain.VisitStatus, reason string, cycle int, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":       status,
		"cycle":        cycle,
		"moderated_at": at,
	}
	if reason != "" {
		updates["flagged_reason"] = reason
	}

	result := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Where("id = ? AND status = ?", visitID, domain.StatusPending).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Where("merchant_id = ? AND status = ?", merchantID, domain.StatusPending).
		Count(&count).Error
	return count, err
}

func (r *repo) PendingPointsByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID) (int, error) {
	return r.sumPoints(ctx, db, "card_id = ? AND status = ?", cardID, domain.StatusPending)
}

func (r *repo) PendingCountByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Where("card_id = ? AND status = ?", cardID, domain.StatusPending).
		Count(&count).Error
	return count, err
}

func (r *repo) SumConfirmedPoints(ctx context.Context, db *gorm.DB, cardID snowflake.ID, cycle int) (int, error) {
	return r.sumPoints(ctx, db, "card_id = ? AND status = ? AND cycle = ?", cardID, domain.StatusConfirmed, cycle)
}

func (r *repo) sumPoints(ctx context.Context, db *gorm.DB, query string, args ...any) (int, error) {
	var total *int
	err := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Select("SUM(points_earned)").
		Where(query, args...).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repo) InsertAdjustment(ctx context.Context, db *gorm.DB, adjustment *domain.PointAdjustment) error {
	return db.WithContext(ctx).Create(adjustment).Error
}

func (r *repo) SumAdjustments(ctx context.Context, db *gorm.DB, cardID snowflake.ID, cycle int) (int, error) {
	var total *int
	err := db.WithContext(ctx).
		Model(&domain.PointAdjustment{}).
		Select("SUM(adjustment)").
		Where("card_id = ? AND cycle = ?", cardID, cycle).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repo) AdjustmentForVisit(ctx context.Context, db *gorm.DB, visitID snowflake.ID) (*domain.PointAdjustment, error) {
	var adjustment domain.PointAdjustment
	err := db.WithContext(ctx).
		Where("visit_id = ?", visitID).
		Take(&adjustment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &adjustment, nil
}

func (r *repo) MerchantsWithStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]snowflake.ID, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Visit{}).
		Distinct("merchant_id").
		Where("status = ? AND visited_at < ?", domain.StatusPending, cutoff)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var ids []snowflake.ID
	if err := stmt.Pluck("merchant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
