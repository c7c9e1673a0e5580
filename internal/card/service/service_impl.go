package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/internal/clock"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	pkgdb "github.com/smallbiznis/punchcard/pkg/db"
	"github.com/smallbiznis/punchcard/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const counterRetries = 3

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	VisitRepo      visitdomain.Repository
	RedemptionRepo redemptiondomain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	repo           domain.Repository
	visitRepo      visitdomain.Repository
	redemptionRepo redemptiondomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("card.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		visitRepo:      p.VisitRepo,
		redemptionRepo: p.RedemptionRepo,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, merchant merchantdomain.Merchant, customerID snowflake.ID) (domain.LoyaltyCard, error) {
	existing, err := s.repo.FindByPair(ctx, s.db, merchant.ID, customerID)
	if err != nil {
		return domain.LoyaltyCard{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	now := s.clock.Now()
	card := domain.LoyaltyCard{
		ID:           s.genID.Generate(),
		MerchantID:   merchant.ID,
		CustomerID:   customerID,
		StampsTarget: merchant.StampsRequired,
		Cycle:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &card); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			raced, findErr := s.repo.FindByPair(ctx, s.db, merchant.ID, customerID)
			if findErr == nil && raced != nil {
				return *raced, nil
			}
		}
		return domain.LoyaltyCard{}, err
	}

	return card, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.LoyaltyCard, error) {
	cardID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || cardID == 0 {
		return domain.LoyaltyCard{}, domain.ErrInvalidID
	}

	card, err := s.repo.FindByID(ctx, s.db, cardID)
	if err != nil {
		return domain.LoyaltyCard{}, err
	}
	if card == nil {
		return domain.LoyaltyCard{}, domain.ErrNotFound
	}
	return *card, nil
}

func (s *Service) DerivedStamps(ctx context.Context, card domain.LoyaltyCard) (int, error) {
	confirmed, err := s.visitRepo.SumConfirmedPoints(ctx, s.db, card.ID, card.Cycle)
	if err != nil {
		return 0, err
	}
	adjusted, err := s.visitRepo.SumAdjustments(ctx, s.db, card.ID, card.Cycle)
	if err != nil {
		return 0, err
	}
	return confirmed + adjusted, nil
}

func (s *Service) Tier1Redeemed(ctx context.Context, card domain.LoyaltyCard) (bool, error) {
	return s.redemptionRepo.Exists(ctx, s.db, card.ID, 1, card.Cycle)
}

func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (domain.AdjustResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.AdjustResponse{}, domain.ErrInvalidReason
	}

	for attempt := 0; attempt < counterRetries; attempt++ {
		card, err := s.GetByID(ctx, req.CardID)
		if err != nil {
			return domain.AdjustResponse{}, err
		}
		if card.MerchantID != req.MerchantID {
			return domain.AdjustResponse{}, domain.ErrNotFound
		}

		now := s.clock.Now()
		adjustment := visitdomain.PointAdjustment{
			ID:         s.genID.Generate(),
			MerchantID: card.MerchantID,
			CustomerID: card.CustomerID,
			CardID:     card.ID,
			VisitID:    req.VisitID,
			Adjustment: req.Adjustment,
			Reason:     reason,
			Cycle:      card.Cycle,
			CreatedAt:  now,
		}

		// Negative totals persist as entered; only display clamps at zero.
		newStamps := card.CurrentStamps + req.Adjustment

		conflicted := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.visitRepo.InsertAdjustment(ctx, tx, &adjustment); err != nil {
				return err
			}
			ok, err := s.repo.UpdateCounter(ctx, tx, card.ID, card.Version, newStamps, card.Cycle, now)
			if err != nil {
				return err
			}
			if !ok {
				conflicted = true
				return domain.ErrConflict
			}
			return nil
		})
		if err != nil {
			if conflicted {
				continue
			}
			return domain.AdjustResponse{}, err
		}

		card.CurrentStamps = newStamps
		card.Version++
		card.UpdatedAt = now
		return domain.AdjustResponse{Card: card, Adjustment: adjustment}, nil
	}

	return domain.AdjustResponse{}, domain.ErrConflict
}

func (s *Service) History(ctx context.Context, cardID string, page pagination.Pagination) (domain.HistoryResponse, error) {
	card, err := s.GetByID(ctx, cardID)
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 20
	}

	items, err := s.visitRepo.ListByCard(ctx, s.db, card.ID, pagination.Pagination{
		PageToken: page.PageToken,
		PageSize:  limit,
	})
	if err != nil {
		return domain.HistoryResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(visit *visitdomain.Visit) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        visit.ID.String(),
			Timestamp: visit.VisitedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	visits := make([]visitdomain.Visit, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		visits = append(visits, *item)
	}

	return domain.HistoryResponse{PageInfo: pageInfo, Visits: visits}, nil
}
