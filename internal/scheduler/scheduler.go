package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/clock"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"github.com/smallbiznis/punchcard/internal/moderation"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler dependencies are required")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	VisitRepo    visitdomain.Repository
	MerchantRepo merchantdomain.Repository
	Notifier     *moderation.Notifier
	Config       Config `optional:"true"`
}

// Scheduler periodically reminds merchants about queues that have sat
// unmoderated past the reminder threshold. Reminders are best effort;
// a failed send is retried on the next eligible tick.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	visitRepo    visitdomain.Repository
	merchantRepo merchantdomain.Repository
	notifier     *moderation.Notifier
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.VisitRepo == nil || p.MerchantRepo == nil || p.Notifier == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		visitRepo:    p.VisitRepo,
		merchantRepo: p.MerchantRepo,
		notifier:     p.Notifier,
	}, nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce scans for merchants whose pending queue is older than the
// reminder threshold and sends at most one reminder per threshold window.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.ReminderAfter)

	merchantIDs, err := s.visitRepo.MerchantsWithStalePending(ctx, s.db, cutoff, s.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, merchantID := range merchantIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.remind(ctx, merchantID, now); err != nil {
			s.log.Warn("moderation reminder failed",
				zap.String("merchant_id", merchantID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *Scheduler) remind(ctx context.Context, merchantID snowflake.ID, now time.Time) error {
	merchant, err := s.merchantRepo.FindByID(ctx, s.db, merchantID)
	if err != nil {
		return err
	}
	if merchant == nil || merchant.ContactEmail == "" {
		return nil
	}
	if merchant.LastModerationReminderAt != nil && now.Sub(*merchant.LastModerationReminderAt) < s.cfg.ReminderAfter {
		return nil
	}

	pending, err := s.visitRepo.CountPending(ctx, s.db, merchant.ID)
	if err != nil {
		return err
	}
	if pending == 0 {
		return nil
	}

	s.notifier.PendingReminder(ctx, *merchant, pending)
	return s.merchantRepo.TouchModerationReminder(ctx, s.db, merchant.ID, now)
}
