package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Merchant is a tenant of the loyalty program. The stamps_required /
// tier2_* columns are the live configuration; cards snapshot their own
// tier-1 target at creation time.
type Merchant struct {
	ID                       snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name                     string            `gorm:"not null" json:"name"`
	ScanCode                 string            `gorm:"not null;uniqueIndex" json:"scan_code"`
	Timezone                 string            `gorm:"not null;default:UTC" json:"timezone"`
	ContactEmail             string            `json:"contact_email,omitempty"`
	StampsRequired           int               `gorm:"not null" json:"stamps_required"`
	RewardDescription        string            `gorm:"not null" json:"reward_description"`
	Tier2Enabled             bool              `gorm:"not null;default:false" json:"tier2_enabled"`
	Tier2StampsRequired      int               `json:"tier2_stamps_required,omitempty"`
	Tier2RewardDescription   string            `json:"tier2_reward_description,omitempty"`
	Metadata                 datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	LastModerationReminderAt *time.Time        `json:"last_moderation_reminder_at,omitempty"`
	CreatedAt                time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// Location resolves the merchant's IANA timezone, falling back to UTC.
func (m Merchant) Location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Ban excludes a customer from checking in at a merchant.
type Ban struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;uniqueIndex:idx_merchant_bans_pair" json:"merchant_id"`
	CustomerID snowflake.ID `gorm:"not null;uniqueIndex:idx_merchant_bans_pair" json:"customer_id"`
	Reason     string       `json:"reason,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Ban) TableName() string {
	return "merchant_bans"
}
