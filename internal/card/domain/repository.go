package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, card *LoyaltyCard) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LoyaltyCard, error)
	FindByPair(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID) (*LoyaltyCard, error)

	// UpdateCounter writes the stamp counter and cycle guarded by the
	// optimistic version check. Returns false when the version moved.
	UpdateCounter(ctx context.Context, db *gorm.DB, id snowflake.ID, fromVersion int64, stamps, cycle int, at time.Time) (bool, error)
}
