package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	"github.com/smallbiznis/punchcard/pkg/db/pagination"
)

type AdjustRequest struct {
	MerchantID snowflake.ID
	CardID     string
	Adjustment int
	Reason     string

	// VisitID marks the adjustment as the compensation for one visit.
	// At most one such adjustment can exist per visit.
	VisitID *snowflake.ID
}

type AdjustResponse struct {
	Card       LoyaltyCard                 `json:"card"`
	Adjustment visitdomain.PointAdjustment `json:"adjustment"`
}

type HistoryResponse struct {
	pagination.PageInfo
	Visits []visitdomain.Visit `json:"visits"`
}

type Service interface {
	// GetOrCreate materializes the card for a (merchant, customer) pair,
	// snapshotting the merchant's current tier-1 threshold on creation.
	GetOrCreate(ctx context.Context, merchant merchantdomain.Merchant, customerID snowflake.ID) (LoyaltyCard, error)
	GetByID(ctx context.Context, id string) (LoyaltyCard, error)

	// DerivedStamps recomputes the current-cycle stamp count from the ledger.
	// It must always equal card.CurrentStamps.
	DerivedStamps(ctx context.Context, card LoyaltyCard) (int, error)

	// Tier1Redeemed reports whether tier 1 was already consumed in the
	// card's current cycle.
	Tier1Redeemed(ctx context.Context, card LoyaltyCard) (bool, error)

	Adjust(ctx context.Context, req AdjustRequest) (AdjustResponse, error)
	History(ctx context.Context, cardID string, page pagination.Pagination) (HistoryResponse, error)
}

// TierConfigFor combines the card's grandfathered tier-1 target with the
// merchant's live tier-2 configuration.
func TierConfigFor(card LoyaltyCard, merchant merchantdomain.Merchant) TierConfig {
	return TierConfig{
		Tier1Target:  card.StampsTarget,
		Tier2Enabled: merchant.Tier2Enabled,
		Tier2Target:  merchant.Tier2StampsRequired,
	}
}

var (
	ErrNotFound      = errors.New("card_not_found")
	ErrInvalidID     = errors.New("invalid_card_id")
	ErrInvalidReason = errors.New("invalid_reason")
	ErrConflict      = errors.New("card_conflict")
)
