package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is unique per (merchant, phone). The same phone may exist under
// several merchants as independent rows sharing only name data at creation.
type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID `gorm:"not null;uniqueIndex:idx_customers_merchant_phone" json:"merchant_id"`
	Phone      string       `gorm:"not null;uniqueIndex:idx_customers_merchant_phone;index" json:"phone"`
	FirstName  string       `gorm:"not null" json:"first_name"`
	LastName   string       `json:"last_name,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
