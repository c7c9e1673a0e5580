package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	cardrepo "github.com/smallbiznis/punchcard/internal/card/repository"
	"github.com/smallbiznis/punchcard/internal/clock"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	merchantrepo "github.com/smallbiznis/punchcard/internal/merchant/repository"
	"github.com/smallbiznis/punchcard/internal/redemption/domain"
	redemptionrepo "github.com/smallbiznis/punchcard/internal/redemption/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&merchantdomain.Merchant{},
		&carddomain.LoyaltyCard{},
		&domain.Redemption{},
	)
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        clock.NewSystemClock(),
		Repo:         redemptionrepo.Provide(),
		CardRepo:     cardrepo.Provide(),
		MerchantRepo: merchantrepo.Provide(),
	})

	return &fixture{svc: svc, db: db, node: node}
}

func (f *fixture) seed(t *testing.T, stamps int, tier2Enabled bool) (merchantdomain.Merchant, carddomain.LoyaltyCard) {
	t.Helper()

	now := time.Now().UTC()
	merchant := merchantdomain.Merchant{
		ID:                  f.node.Generate(),
		Name:                "Corner Cafe",
		ScanCode:            f.node.Generate().Base58(),
		Timezone:            "UTC",
		StampsRequired:      8,
		RewardDescription:   "Free coffee",
		Tier2Enabled:        tier2Enabled,
		Tier2StampsRequired: 15,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	assert.NoError(t, f.db.Create(&merchant).Error)

	card := carddomain.LoyaltyCard{
		ID:            f.node.Generate(),
		MerchantID:    merchant.ID,
		CustomerID:    f.node.Generate(),
		StampsTarget:  8,
		CurrentStamps: stamps,
		Cycle:         1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	assert.NoError(t, f.db.Create(&card).Error)
	return merchant, card
}

func TestRedeem_Tier1ResetsWhenTier2Disabled(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 8, false)

	resp, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       1,
	})
	assert.NoError(t, err)
	assert.True(t, resp.StampsReset)
	assert.Equal(t, 0, resp.CurrentStamps)
	assert.Equal(t, 2, resp.Cycle)
	assert.Equal(t, 8, resp.Redemption.StampsUsed)

	var stored carddomain.LoyaltyCard
	assert.NoError(t, f.db.Where("id = ?", card.ID).Take(&stored).Error)
	assert.Equal(t, 0, stored.CurrentStamps)
	assert.Equal(t, 2, stored.Cycle)
}

func TestRedeem_Tier1KeepsProgressWhenTier2Enabled(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 11, true)

	resp, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       1,
	})
	assert.NoError(t, err)
	assert.False(t, resp.StampsReset)
	assert.Equal(t, 11, resp.CurrentStamps)
	assert.Equal(t, 1, resp.Cycle)
	assert.Equal(t, carddomain.PhaseTier1RedeemedAwaitingTier2, resp.Tier.Phase)

	var stored carddomain.LoyaltyCard
	assert.NoError(t, f.db.Where("id = ?", card.ID).Take(&stored).Error)
	assert.Equal(t, 11, stored.CurrentStamps)
	assert.Equal(t, 1, stored.Cycle)
}

func TestRedeem_Tier2ResetsAndClearsRedemptionState(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 15, true)

	// Tier 1 must be consumed first for tier 2 to unlock.
	_, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       1,
	})
	assert.NoError(t, err)

	resp, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       2,
	})
	assert.NoError(t, err)
	assert.True(t, resp.StampsReset)
	assert.Equal(t, 0, resp.CurrentStamps)
	assert.Equal(t, 2, resp.Cycle)
	assert.Equal(t, 15, resp.Redemption.StampsUsed)

	// New cycle starts over at tier 1.
	assert.Equal(t, carddomain.PhaseTier1Locked, resp.Tier.Phase)
	assert.False(t, resp.Tier.Tier1Redeemed)
}

func TestRedeem_NotUnlocked(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 7, false)

	_, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       1,
	})
	assert.ErrorIs(t, err, domain.ErrNotUnlocked)
}

func TestRedeem_Tier2BeforeTier1NotUnlocked(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 15, true)

	_, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       2,
	})
	assert.ErrorIs(t, err, domain.ErrNotUnlocked)
}

func TestRedeem_Tier2Disabled(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 15, false)

	_, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       2,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}

func TestRedeem_ReplayIsRejected(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 11, true)

	req := domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       1,
	}
	_, err := f.svc.Redeem(context.Background(), req)
	assert.NoError(t, err)

	// No reset happened, so the cycle is unchanged and the replay hits the
	// per-cycle uniqueness.
	_, err = f.svc.Redeem(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrAlreadyRedeemed)

	var count int64
	assert.NoError(t, f.db.Model(&domain.Redemption{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRedeem_WrongCustomer(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 8, false)

	_, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: f.node.Generate().String(),
		Tier:       1,
	})
	assert.ErrorIs(t, err, carddomain.ErrNotFound)
}

func TestRedeem_InvalidTier(t *testing.T) {
	f := setup(t)
	_, card := f.seed(t, 8, false)

	_, err := f.svc.Redeem(context.Background(), domain.RedeemRequest{
		CardID:     card.ID.String(),
		CustomerID: card.CustomerID.String(),
		Tier:       3,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTier)
}
