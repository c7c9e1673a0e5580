package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LoyaltyCard is the per-(merchant, customer) aggregate. It is materialized
// lazily on first scan; CurrentStamps is a denormalized counter that must
// always agree with the ledger-derived value for the current cycle.
//
// StampsTarget is the tier-1 threshold grandfathered at card creation;
// later merchant config changes do not touch it. Cycle is a monotonically
// increasing counter bumped by every stamp reset; it is the explicit cycle
// boundary marker used by redemption idempotency. Version guards every
// counter mutation optimistically.
type LoyaltyCard struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID    snowflake.ID `gorm:"not null;uniqueIndex:idx_loyalty_cards_pair" json:"merchant_id"`
	CustomerID    snowflake.ID `gorm:"not null;uniqueIndex:idx_loyalty_cards_pair" json:"customer_id"`
	StampsTarget  int          `gorm:"not null" json:"stamps_target"`
	CurrentStamps int          `gorm:"not null;default:0" json:"current_stamps"`
	Cycle         int          `gorm:"not null;default:1" json:"cycle"`
	Version       int64        `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
