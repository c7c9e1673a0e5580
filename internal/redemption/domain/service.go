package domain

import (
	"context"
	"errors"

	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
)

type RedeemRequest struct {
	CardID     string
	CustomerID string
	Tier       int
}

type RedeemResponse struct {
	Redemption    Redemption           `json:"redemption"`
	StampsReset   bool                 `json:"stamps_reset"`
	CurrentStamps int                  `json:"current_stamps"`
	Cycle         int                  `json:"cycle"`
	Tier          carddomain.TierState `json:"tier"`
}

type Service interface {
	Redeem(ctx context.Context, req RedeemRequest) (RedeemResponse, error)
}

var (
	ErrInvalidTier     = errors.New("invalid_tier")
	ErrNotUnlocked     = errors.New("tier_not_unlocked")
	ErrAlreadyRedeemed = errors.New("tier_already_redeemed")
)
