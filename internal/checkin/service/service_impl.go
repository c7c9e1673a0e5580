package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	"github.com/smallbiznis/punchcard/internal/checkin/domain"
	"github.com/smallbiznis/punchcard/internal/clock"
	"github.com/smallbiznis/punchcard/internal/config"
	customerdomain "github.com/smallbiznis/punchcard/internal/customer/domain"
	"github.com/smallbiznis/punchcard/internal/lock"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"github.com/smallbiznis/punchcard/internal/moderation"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
	"github.com/smallbiznis/punchcard/internal/shield"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	pkgdb "github.com/smallbiznis/punchcard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	counterRetries = 3
	cardLockTTL    = 3 * time.Second
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Cfg         config.Config
	Clock       clock.Clock
	MerchantSvc merchantdomain.Service
	CustomerSvc customerdomain.Service
	CardSvc     carddomain.Service
	CardRepo    carddomain.Repository
	VisitRepo   visitdomain.Repository
	RedeemRepo  redemptiondomain.Repository
	Gate        *shield.Gate
	Notifier    *moderation.Notifier
	Locker      *lock.Locker `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	cfg         config.Config
	clock       clock.Clock
	merchantSvc merchantdomain.Service
	customerSvc customerdomain.Service
	cardSvc     carddomain.Service
	cardRepo    carddomain.Repository
	visitRepo   visitdomain.Repository
	redeemRepo  redemptiondomain.Repository
	gate        *shield.Gate
	notifier    *moderation.Notifier
	locker      *lock.Locker
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("checkin.service"),
		genID:       p.GenID,
		cfg:         p.Cfg,
		clock:       p.Clock,
		merchantSvc: p.MerchantSvc,
		customerSvc: p.CustomerSvc,
		cardSvc:     p.CardSvc,
		cardRepo:    p.CardRepo,
		visitRepo:   p.VisitRepo,
		redeemRepo:  p.RedeemRepo,
		gate:        p.Gate,
		notifier:    p.Notifier,
		locker:      p.Locker,
	}
}

// CheckIn runs the scan flow: resolve merchant and identity, classify the
// attempt through the shield gate, append to the visit ledger, and update
// the denormalized counter in the same unit of work.
func (s *Service) CheckIn(ctx context.Context, req domain.CheckInRequest) (domain.ScanResult, error) {
	merchant, err := s.merchantSvc.GetByScanCode(ctx, req.ScanCode)
	if err != nil {
		if errors.Is(err, merchantdomain.ErrNotFound) {
			return domain.ScanResult{}, domain.ErrUnknownScanCode
		}
		return domain.ScanResult{}, err
	}

	points := req.Points
	if points == 0 {
		points = 1
	}
	if points < 1 {
		return domain.ScanResult{}, domain.ErrInvalidPoints
	}

	customer, err := s.resolveCustomer(ctx, merchant, req)
	if err != nil {
		return domain.ScanResult{}, err
	}

	now := s.clock.Now()

	// Client marker short-circuit: an automatic re-submission for a day the
	// client already checked in returns the current snapshot without a
	// ledger write. The gate below stays the authoritative control.
	if req.Auto && req.Session.CheckedInToday && req.Session.LastScanDate == now.In(merchant.Location()).Format("2006-01-02") {
		card, err := s.cardSvc.GetOrCreate(ctx, merchant, customer.ID)
		if err != nil {
			return domain.ScanResult{}, err
		}
		return s.buildResult(ctx, merchant, card, visitdomain.StatusConfirmed, 0, 0)
	}

	decision, err := s.gate.Evaluate(ctx, merchant, customer.ID, now)
	if err != nil {
		return domain.ScanResult{}, err
	}

	card, err := s.cardSvc.GetOrCreate(ctx, merchant, customer.ID)
	if err != nil {
		return domain.ScanResult{}, err
	}

	if s.locker != nil {
		key := "lock:card:" + card.ID.String()
		if token, ok, lockErr := s.locker.TryLock(ctx, key, cardLockTTL); lockErr == nil && ok {
			defer func() { _ = s.locker.Release(ctx, key, token) }()
		}
	}

	switch decision {
	case shield.DecisionConfirmed:
		return s.recordConfirmed(ctx, merchant, card, points, now)
	default:
		return s.recordPending(ctx, merchant, card, points, now)
	}
}

func (s *Service) resolveCustomer(ctx context.Context, merchant merchantdomain.Merchant, req domain.CheckInRequest) (customerdomain.Customer, error) {
	resolution, err := s.customerSvc.Resolve(ctx, customerdomain.ResolveRequest{
		MerchantID: merchant.ID,
		Phone:      req.Phone,
	})
	if err != nil {
		return customerdomain.Customer{}, err
	}
	if resolution.ExistsForMerchant {
		return *resolution.Customer, nil
	}

	// Cross-merchant bootstrap: reuse name data from any merchant the phone
	// is already registered with; nothing else crosses the tenant boundary.
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" && resolution.ExistsGlobally {
		firstName = resolution.FirstName
		lastName = resolution.LastName
	}

	return s.customerSvc.Create(ctx, customerdomain.CreateCustomerRequest{
		MerchantID: merchant.ID,
		Phone:      req.Phone,
		FirstName:  firstName,
		LastName:   lastName,
	})
}

func (s *Service) recordConfirmed(ctx context.Context, merchant merchantdomain.Merchant, card carddomain.LoyaltyCard, points int, now time.Time) (domain.ScanResult, error) {
	for attempt := 0; attempt < counterRetries; attempt++ {
		visit := visitdomain.Visit{
			ID:           s.genID.Generate(),
			MerchantID:   merchant.ID,
			CustomerID:   card.CustomerID,
			CardID:       card.ID,
			PointsEarned: points,
			Status:       visitdomain.StatusConfirmed,
			Cycle:        card.Cycle,
			VisitedAt:    now,
		}
		newStamps := card.CurrentStamps + points

		conflicted := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.visitRepo.Insert(ctx, tx, &visit); err != nil {
				return err
			}
			ok, err := s.cardRepo.UpdateCounter(ctx, tx, card.ID, card.Version, newStamps, card.Cycle, now)
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
				fresh, freshErr := s.cardRepo.FindByID(ctx, s.db, card.ID)
				if freshErr != nil {
					return domain.ScanResult{}, freshErr
				}
				if fresh == nil {
					return domain.ScanResult{}, carddomain.ErrNotFound
				}
				card = *fresh
				continue
			}
			return domain.ScanResult{}, err
		}

		card.CurrentStamps = newStamps
		return s.buildResult(ctx, merchant, card, visitdomain.StatusConfirmed, visit.ID, points)
	}

	return domain.ScanResult{}, carddomain.ErrConflict
}

func (s *Service) recordPending(ctx context.Context, merchant merchantdomain.Merchant, card carddomain.LoyaltyCard, points int, now time.Time) (domain.ScanResult, error) {
	visit := visitdomain.Visit{
		ID:            s.genID.Generate(),
		MerchantID:    merchant.ID,
		CustomerID:    card.CustomerID,
		CardID:        card.ID,
		PointsEarned:  points,
		Status:        visitdomain.StatusPending,
		FlaggedReason: shield.FlagReasonRepeat,
		VisitedAt:     now,
	}

	var pendingBefore int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.visitRepo.CountPending(ctx, tx, merchant.ID)
		if err != nil {
			return err
		}
		pendingBefore = count
		return s.visitRepo.Insert(ctx, tx, &visit)
	})
	if err != nil {
		return domain.ScanResult{}, err
	}

	if pendingBefore == 0 {
		s.notifier.PendingArrived(ctx, merchant, pendingBefore+1)
	}

	return s.buildResult(ctx, merchant, card, visitdomain.StatusPending, visit.ID, points)
}

func (s *Service) buildResult(ctx context.Context, merchant merchantdomain.Merchant, card carddomain.LoyaltyCard, status visitdomain.VisitStatus, visitID snowflake.ID, points int) (domain.ScanResult, error) {
	tier1Redeemed, err := s.cardSvc.Tier1Redeemed(ctx, card)
	if err != nil {
		return domain.ScanResult{}, err
	}
	tier2Redeemed, err := s.redeemRepo.Exists(ctx, s.db, card.ID, 2, card.Cycle)
	if err != nil {
		return domain.ScanResult{}, err
	}

	pendingStamps, err := s.visitRepo.PendingPointsByCard(ctx, s.db, card.ID)
	if err != nil {
		return domain.ScanResult{}, err
	}
	pendingCount, err := s.visitRepo.PendingCountByCard(ctx, s.db, card.ID)
	if err != nil {
		return domain.ScanResult{}, err
	}

	cfg := carddomain.TierConfigFor(card, merchant)
	return domain.ScanResult{
		Status:        status,
		VisitID:       visitID,
		CardID:        card.ID,
		CustomerID:    card.CustomerID,
		CurrentStamps: card.CurrentStamps,
		PointsEarned:  points,
		Tier:          carddomain.DeriveTierState(card.CurrentStamps, cfg, tier1Redeemed),
		Tier1Redeemed: tier1Redeemed,
		Tier2Redeemed: tier2Redeemed,
		PendingStamps: pendingStamps,
		PendingCount:  pendingCount,
	}, nil
}

// Undo retracts a check-in inside the grace window. A pending visit takes
// the normal pending -> rejected transition; a confirmed visit is reversed
// with a compensating adjustment so the ledger stays append-only.
func (s *Service) Undo(ctx context.Context, req domain.UndoRequest) (domain.UndoResult, error) {
	visitID, err := snowflake.ParseString(strings.TrimSpace(req.VisitID))
	if err != nil || visitID == 0 {
		return domain.UndoResult{}, domain.ErrVisitNotFound
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.UndoResult{}, domain.ErrVisitNotFound
	}

	visit, err := s.visitRepo.FindByID(ctx, s.db, visitID)
	if err != nil {
		return domain.UndoResult{}, err
	}
	if visit == nil || visit.CustomerID != customerID {
		return domain.UndoResult{}, domain.ErrVisitNotFound
	}

	now := s.clock.Now()
	if now.Sub(visit.VisitedAt) > s.cfg.Shield.UndoWindow {
		return domain.UndoResult{}, domain.ErrUndoExpired
	}

	switch visit.Status {
	case visitdomain.StatusPending:
		ok, err := s.visitRepo.Moderate(ctx, s.db, visit.ID, visitdomain.StatusRejected, "undone by customer", 0, now)
		if err != nil {
			return domain.UndoResult{}, err
		}
		card, cardErr := s.cardRepo.FindByID(ctx, s.db, visit.CardID)
		if cardErr != nil || card == nil {
			return domain.UndoResult{}, cardErr
		}
		return domain.UndoResult{VisitID: visit.ID, Reverted: ok, CurrentStamps: card.CurrentStamps}, nil

	case visitdomain.StatusConfirmed:
		// One compensation per visit: a replayed undo finds the existing
		// adjustment (or trips its unique index) and becomes a no-op.
		existing, err := s.visitRepo.AdjustmentForVisit(ctx, s.db, visit.ID)
		if err != nil {
			return domain.UndoResult{}, err
		}
		if existing != nil {
			card, cardErr := s.cardRepo.FindByID(ctx, s.db, visit.CardID)
			if cardErr != nil || card == nil {
				return domain.UndoResult{}, cardErr
			}
			return domain.UndoResult{VisitID: visit.ID, Reverted: false, CurrentStamps: card.CurrentStamps}, nil
		}

		resp, err := s.cardSvc.Adjust(ctx, carddomain.AdjustRequest{
			MerchantID: visit.MerchantID,
			CardID:     visit.CardID.String(),
			Adjustment: -visit.PointsEarned,
			Reason:     "undo check-in " + visit.ID.String(),
			VisitID:    &visit.ID,
		})
		if err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				card, cardErr := s.cardRepo.FindByID(ctx, s.db, visit.CardID)
				if cardErr != nil || card == nil {
					return domain.UndoResult{}, cardErr
				}
				return domain.UndoResult{VisitID: visit.ID, Reverted: false, CurrentStamps: card.CurrentStamps}, nil
			}
			return domain.UndoResult{}, err
		}
		return domain.UndoResult{VisitID: visit.ID, Reverted: true, CurrentStamps: resp.Card.CurrentStamps}, nil

	default:
		// Already rejected or undone: equivalent no-op.
		card, err := s.cardRepo.FindByID(ctx, s.db, visit.CardID)
		if err != nil || card == nil {
			return domain.UndoResult{}, err
		}
		return domain.UndoResult{VisitID: visit.ID, Reverted: false, CurrentStamps: card.CurrentStamps}, nil
	}
}
