package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, merchantID, id snowflake.ID) (*Customer, error)
	FindByMerchantAndPhone(ctx context.Context, db *gorm.DB, merchantID snowflake.ID, phone string) (*Customer, error)
	FindAnyByPhone(ctx context.Context, db *gorm.DB, phone string) (*Customer, error)
	UpdateName(ctx context.Context, db *gorm.DB, customer *Customer) error
}
