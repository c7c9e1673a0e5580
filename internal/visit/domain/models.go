package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type VisitStatus string

const (
	StatusPending   VisitStatus = "pending"
	StatusConfirmed VisitStatus = "confirmed"
	StatusRejected  VisitStatus = "rejected"
)

// Visit is one check-in attempt. Rows are append-only; the only permitted
// mutation is a single pending -> confirmed|rejected transition.
//
// Cycle is the card cycle the visit counts toward. It is assigned when the
// visit is confirmed: at creation for auto-confirmed visits, at moderation
// time for quarantined ones. Rejected and pending visits carry no cycle.
type Visit struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	MerchantID    snowflake.ID `gorm:"not null;index" json:"merchant_id"`
	CustomerID    snowflake.ID `gorm:"not null;index" json:"customer_id"`
	CardID        snowflake.ID `gorm:"not null;index" json:"card_id"`
	PointsEarned  int          `gorm:"not null;default:1" json:"points_earned"`
	Status        VisitStatus  `gorm:"not null;index" json:"status"`
	FlaggedReason string       `json:"flagged_reason,omitempty"`
	Cycle         int          `gorm:"not null;default:0" json:"cycle"`
	VisitedAt     time.Time    `gorm:"not null;index" json:"visited_at"`
	ModeratedAt   *time.Time   `json:"moderated_at,omitempty"`
}

// PointAdjustment is a signed manual correction entered by the merchant,
// or the compensating entry that reverses one confirmed visit. Always
// counted as confirmed; negative totals are persisted as entered.
type PointAdjustment struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	MerchantID snowflake.ID  `gorm:"not null;index" json:"merchant_id"`
	CustomerID snowflake.ID  `gorm:"not null" json:"customer_id"`
	CardID     snowflake.ID  `gorm:"not null;index" json:"card_id"`
	VisitID    *snowflake.ID `gorm:"uniqueIndex:idx_point_adjustments_visit" json:"visit_id,omitempty"`
	Adjustment int           `gorm:"not null" json:"adjustment"`
	Reason     string        `gorm:"not null" json:"reason"`
	Cycle      int           `gorm:"not null" json:"cycle"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}
