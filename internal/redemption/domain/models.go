package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Redemption is immutable: created exactly once per redemption action,
// never mutated or deleted. The unique (card_id, tier, cycle) index is the
// idempotency key: one redemption per tier per cycle.
type Redemption struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	CustomerID snowflake.ID `gorm:"not null" json:"customer_id"`
	CardID     snowflake.ID `gorm:"not null;uniqueIndex:idx_redemptions_card_tier_cycle" json:"loyalty_card_id"`
	Tier       int          `gorm:"not null;uniqueIndex:idx_redemptions_card_tier_cycle" json:"tier"`
	Cycle      int          `gorm:"not null;uniqueIndex:idx_redemptions_card_tier_cycle" json:"cycle"`
	StampsUsed int          `gorm:"not null" json:"stamps_used"`
	RedeemedAt time.Time    `gorm:"not null" json:"redeemed_at"`
}
