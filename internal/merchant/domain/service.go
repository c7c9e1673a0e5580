package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateMerchantRequest struct {
	Name                   string
	ScanCode               string
	Timezone               string
	ContactEmail           string
	StampsRequired         int
	RewardDescription      string
	Tier2Enabled           bool
	Tier2StampsRequired    int
	Tier2RewardDescription string
}

// UpdateLoyaltyConfigRequest replaces the merchant's loyalty configuration.
// Existing cards keep the tier-1 target snapshotted at card creation.
type UpdateLoyaltyConfigRequest struct {
	MerchantID             string
	StampsRequired         int
	RewardDescription      string
	Tier2Enabled           bool
	Tier2StampsRequired    int
	Tier2RewardDescription string
}

type BanRequest struct {
	MerchantID string
	CustomerID string
	Reason     string
}

type Service interface {
	Create(ctx context.Context, req CreateMerchantRequest) (Merchant, error)
	GetByID(ctx context.Context, id string) (Merchant, error)
	GetByScanCode(ctx context.Context, scanCode string) (Merchant, error)
	UpdateLoyaltyConfig(ctx context.Context, req UpdateLoyaltyConfigRequest) (Merchant, error)
	Ban(ctx context.Context, req BanRequest) error
	Unban(ctx context.Context, merchantID, customerID string) error
	IsBanned(ctx context.Context, merchantID, customerID snowflake.ID) (bool, error)
}

var (
	ErrNotFound               = errors.New("merchant_not_found")
	ErrInvalidID              = errors.New("invalid_merchant_id")
	ErrInvalidName            = errors.New("invalid_name")
	ErrInvalidTimezone        = errors.New("invalid_timezone")
	ErrInvalidStampsRequired  = errors.New("invalid_stamps_required")
	ErrInvalidRewardText      = errors.New("invalid_reward_description")
	ErrTierThresholdOrder     = errors.New("invalid_tier2_stamps_required")
	ErrInvalidCustomerID      = errors.New("invalid_customer_id")
	ErrScanCodeAlreadyInUse   = errors.New("scan_code_already_in_use")
)
