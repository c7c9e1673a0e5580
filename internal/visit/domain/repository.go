package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository is the append-only visit ledger plus the manual adjustment
// journal. All mutating calls take the caller's db handle so orchestrators
// can scope them inside a transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, visit *Visit) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Visit, error)
	ListByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID, page pagination.Pagination) ([]*Visit, error)
	ListPending(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, limit int) ([]*Visit, error)

	// CountSameDay counts non-rejected check-ins inside [from, to) for the
	// shield's velocity window.
	CountSameDay(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID, from, to time.Time) (int64, error)

	// Moderate performs the single allowed pending -> status transition.
	// Returns false when the visit was not pending anymore.
	Moderate(ctx context.Context, db *gorm.DB, visitID snowflake.ID, status VisitStatus, reason string, cycle int, at time.Time) (bool, error)

	CountPending(ctx context.Context, db *gorm.DB, merchantID snowflake.ID) (int64, error)
	PendingPointsByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID) (int, error)
	PendingCountByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID) (int64, error)

	SumConfirmedPoints(ctx context.Context, db *gorm.DB, cardID snowflake.ID, cycle int) (int, error)

	InsertAdjustment(ctx context.Context, db *gorm.DB, adjustment *PointAdjustment) error
	SumAdjustments(ctx context.Context, db *gorm.DB, cardID snowflake.ID, cycle int) (int, error)

	// AdjustmentForVisit returns the compensating adjustment recorded for a
	// visit, or nil when the visit was never reversed.
	AdjustmentForVisit(ctx context.Context, db *gorm.DB, visitID snowflake.ID) (*PointAdjustment, error)

	// MerchantsWithStalePending returns merchant IDs that still have pending
	// visits recorded before the cutoff.
	MerchantsWithStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]snowflake.ID, error)
}

var ErrNotPending = errors.New("visit_not_pending")
