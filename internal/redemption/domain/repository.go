package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, redemption *Redemption) error
	Exists(ctx context.Context, db *gorm.DB, cardID snowflake.ID, tier, cycle int) (bool, error)
	ListByCard(ctx context.Context, db *gorm.DB, cardID snowflake.ID) ([]*Redemption, error)
}
