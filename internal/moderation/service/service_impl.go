package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/internal/clock"
	"github.com/smallbiznis/punchcard/internal/moderation/domain"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const counterRetries = 3

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	VisitRepo visitdomain.Repository
	CardRepo  carddomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	visitRepo visitdomain.Repository
	cardRepo  carddomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("moderation.service"),
		clock:     p.Clock,
		visitRepo: p.VisitRepo,
		cardRepo:  p.CardRepo,
	}
}

func (s *Service) ListPending(ctx context.Context, merchantID string, limit int) ([]visitdomain.Visit, error) {
	id, err := parseID(merchantID)
	if err != nil {
		return nil, err
	}

	items, err := s.visitRepo.ListPending(ctx, s.db, id, limit)
	if err != nil {
		return nil, err
	}

	visits := make([]visitdomain.Visit, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		visits = append(visits, *item)
	}
	return visits, nil
}

// Confirm counts the visit toward the card's current cycle, so a visit
// moderated after an intervening redemption still credits the customer.
func (s *Service) Confirm(ctx context.Context, merchantID, visitID string) (domain.ConfirmResponse, error) {
	visit, err := s.pendingVisit(ctx, merchantID, visitID)
	if err != nil {
		return domain.ConfirmResponse{}, err
	}

	for attempt := 0; attempt < counterRetries; attempt++ {
		card, err := s.cardRepo.FindByID(ctx, s.db, visit.CardID)
		if err != nil {
			return domain.ConfirmResponse{}, err
		}
		if card == nil {
			return domain.ConfirmResponse{}, carddomain.ErrNotFound
		}

		now := s.clock.Now()
		newStamps := card.CurrentStamps + visit.PointsEarned

		conflicted := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ok, err := s.visitRepo.Moderate(ctx, tx, visit.ID, visitdomain.StatusConfirmed, "", card.Cycle, now)
			if err != nil {
				return err
			}
			if !ok {
				return visitdomain.ErrNotPending
			}
			ok, err = s.cardRepo.UpdateCounter(ctx, tx, card.ID, card.Version, newStamps, card.Cycle, now)
			if err != nil {
				return err
			}
			if !ok {
				conflicted = true
				return carddomain.ErrConflict
			}
			return nil
		})
		if err != nil {
			if conflicted {
				continue
			}
			return domain.ConfirmResponse{}, err
		}

		visit.Status = visitdomain.StatusConfirmed
		visit.Cycle = card.Cycle
		visit.ModeratedAt = &now
		card.CurrentStamps = newStamps
		card.Version++
		card.UpdatedAt = now

		s.log.Info("pending visit confirmed",
			zap.String("visit_id", visit.ID.String()),
			zap.String("card_id", card.ID.String()),
			zap.Int("points", visit.PointsEarned),
		)
		return domain.ConfirmResponse{Visit: visit, Card: *card}, nil
	}

	return domain.ConfirmResponse{}, carddomain.ErrConflict
}

// Reject permanently excludes the visit from stamp totals; points_earned is
// retained on the row for audit.
func (s *Service) Reject(ctx context.Context, merchantID, visitID, reason string) (visitdomain.Visit, error) {
	visit, err := s.pendingVisit(ctx, merchantID, visitID)
	if err != nil {
		return visitdomain.Visit{}, err
	}

	now := s.clock.Now()
	ok, err := s.visitRepo.Moderate(ctx, s.db, visit.ID, visitdomain.StatusRejected, strings.TrimSpace(reason), 0, now)
	if err != nil {
		return visitdomain.Visit{}, err
	}
	if !ok {
		return visitdomain.Visit{}, visitdomain.ErrNotPending
	}

	visit.Status = visitdomain.StatusRejected
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		visit.FlaggedReason = trimmed
	}
	visit.ModeratedAt = &now
	return visit, nil
}

func (s *Service) pendingVisit(ctx context.Context, merchantID, visitID string) (visitdomain.Visit, error) {
	mID, err := parseID(merchantID)
	if err != nil {
		return visitdomain.Visit{}, err
	}
	vID, err := parseID(visitID)
	if err != nil {
		return visitdomain.Visit{}, err
	}

	visit, err := s.visitRepo.FindByID(ctx, s.db, vID)
	if err != nil {
		return visitdomain.Visit{}, err
	}
	if visit == nil || visit.MerchantID != mID {
		return visitdomain.Visit{}, domain.ErrVisitNotFound
	}
	if visit.Status != visitdomain.StatusPending {
		return visitdomain.Visit{}, visitdomain.ErrNotPending
	}
	return *visit, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
