package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/internal/clock"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"github.com/smallbiznis/punchcard/internal/redemption/domain"
	pkgdb "github.com/smallbiznis/punchcard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const redeemRetries = 3

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CardRepo     carddomain.Repository
	MerchantRepo merchantdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	cardRepo     carddomain.Repository
	merchantRepo merchantdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("redemption.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		cardRepo:     p.CardRepo,
		merchantRepo: p.MerchantRepo,
	}
}

// Redeem commits a redemption as one atomic unit: revalidate the unlock
// against current server-side stamps, insert the redemption row under the
// (card, tier, cycle) uniqueness constraint, then apply the reset policy.
// Client-supplied progress is never trusted.
func (s *Service) Redeem(ctx context.Context, req domain.RedeemRequest) (domain.RedeemResponse, error) {
	if req.Tier != 1 && req.Tier != 2 {
		return domain.RedeemResponse{}, domain.ErrInvalidTier
	}

	cardID, err := snowflake.ParseString(strings.TrimSpace(req.CardID))
	if err != nil || cardID == 0 {
		return domain.RedeemResponse{}, carddomain.ErrInvalidID
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.RedeemResponse{}, carddomain.ErrNotFound
	}

	var lastErr error
	for attempt := 0; attempt < redeemRetries; attempt++ {
		resp, err := s.redeemOnce(ctx, cardID, customerID, req.Tier)
		if err == carddomain.ErrConflict {
			lastErr = err
			continue
		}
		return resp, err
	}
	return domain.RedeemResponse{}, lastErr
}

func (s *Service) redeemOnce(ctx context.Context, cardID, customerID snowflake.ID, tier int) (domain.RedeemResponse, error) {
	card, err := s.cardRepo.FindByID(ctx, s.db, cardID)
	if err != nil {
		return domain.RedeemResponse{}, err
	}
	if card == nil || card.CustomerID != customerID {
		return domain.RedeemResponse{}, carddomain.ErrNotFound
	}

	merchant, err := s.merchantRepo.FindByID(ctx, s.db, card.MerchantID)
	if err != nil {
		return domain.RedeemResponse{}, err
	}
	if merchant == nil {
		return domain.RedeemResponse{}, merchantdomain.ErrNotFound
	}

	cfg := carddomain.TierConfigFor(*card, *merchant)
	if tier == 2 && !cfg.Tier2Enabled {
		return domain.RedeemResponse{}, domain.ErrInvalidTier
	}

	already, err := s.repo.Exists(ctx, s.db, card.ID, tier, card.Cycle)
	if err != nil {
		return domain.RedeemResponse{}, err
	}
	if already {
		return domain.RedeemResponse{}, domain.ErrAlreadyRedeemed
	}

	tier1Redeemed, err := s.repo.Exists(ctx, s.db, card.ID, 1, card.Cycle)
	if err != nil {
		return domain.RedeemResponse{}, err
	}

	state := carddomain.DeriveTierState(card.CurrentStamps, cfg, tier1Redeemed)
	switch tier {
	case 1:
		if state.Phase != carddomain.PhaseTier1Unlocked {
			return domain.RedeemResponse{}, domain.ErrNotUnlocked
		}
	case 2:
		if state.Phase != carddomain.PhaseTier2Unlocked {
			return domain.RedeemResponse{}, domain.ErrNotUnlocked
		}
	}

	stampsUsed := cfg.Tier1Target
	if tier == 2 {
		stampsUsed = cfg.Tier2Target
	}

	// Tier 2 always resets; tier 1 resets only when tier 2 is disabled.
	resets := tier == 2 || !cfg.Tier2Enabled

	now := s.clock.Now()
	redemption := domain.Redemption{
		ID:         s.genID.Generate(),
		MerchantID: card.MerchantID,
		CustomerID: card.CustomerID,
		CardID:     card.ID,
		Tier:       tier,
		Cycle:      card.Cycle,
		StampsUsed: stampsUsed,
		RedeemedAt: now,
	}

	newStamps := card.CurrentStamps
	newCycle := card.Cycle
	if resets {
		newStamps = 0
		newCycle = card.Cycle + 1
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &redemption); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyRedeemed
			}
			return err
		}
		if !resets {
			return nil
		}
		ok, err := s.cardRepo.UpdateCounter(ctx, tx, card.ID, card.Version, newStamps, newCycle, now)
		if err != nil {
			return err
		}
		if !ok {
			return carddomain.ErrConflict
		}
		return nil
	})
	if err != nil {
		return domain.RedeemResponse{}, err
	}

	s.log.Info("redemption committed",
		zap.String("card_id", card.ID.String()),
		zap.Int("tier", tier),
		zap.Int("cycle", redemption.Cycle),
		zap.Bool("stamps_reset", resets),
	)

	tier1After := tier == 1 && !resets
	return domain.RedeemResponse{
		Redemption:    redemption,
		StampsReset:   resets,
		CurrentStamps: newStamps,
		Cycle:         newCycle,
		Tier:          carddomain.DeriveTierState(newStamps, cfg, tier1After),
	}, nil
}
