package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, merchant *Merchant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Merchant, error)
	FindByScanCode(ctx context.Context, db *gorm.DB, scanCode string) (*Merchant, error)
	UpdateLoyaltyConfig(ctx context.Context, db *gorm.DB, merchant *Merchant) error
	TouchModerationReminder(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, at time.Time) error
	InsertBan(ctx context.Context, db *gorm.DB, ban *Ban) error
	DeleteBan(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID) error
	BanExists(ctx context.Context, db *gorm.DB, merchantID, customerID snowflake.ID) (bool, error)
}
