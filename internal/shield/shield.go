package shield

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Decision is the gate's classification of a check-in attempt.
type Decision string

const (
	DecisionConfirmed Decision = "confirmed"
	DecisionPending   Decision = "pending"
)

// FlagReasonRepeat is recorded on visits quarantined by the same-day rule.
const FlagReasonRepeat = "repeat check-in on the same day"

// ErrBanned is terminal: the caller must not create a visit row.
var ErrBanned = errors.New("customer_banned")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	VisitRepo visitdomain.Repository
	BanRepo   merchantdomain.Repository
}

// Gate classifies check-in attempts. Same-day repeat scans are the dominant
// fraud signal (shared phone, replay scanning): the first check-in of the
// merchant-local calendar day is confirmed, later ones are quarantined as
// pending rather than rejected outright, which keeps false positives
// recoverable through moderation.
type Gate struct {
	db        *gorm.DB
	log       *zap.Logger
	visitRepo visitdomain.Repository
	banRepo   merchantdomain.Repository
}

func New(p Params) *Gate {
	return &Gate{
		db:        p.DB,
		log:       p.Log.Named("shield.gate"),
		visitRepo: p.VisitRepo,
		banRepo:   p.BanRepo,
	}
}

// Evaluate is side-effect free; the decision only selects the status the
// visit ledger writes afterwards.
func (g *Gate) Evaluate(ctx context.Context, merchant merchantdomain.Merchant, customerID snowflake.ID, at time.Time) (Decision, error) {
	banned, err := g.banRepo.BanExists(ctx, g.db, merchant.ID, customerID)
	if err != nil {
		return "", err
	}
	if banned {
		return "", ErrBanned
	}

	from, to := DayBounds(at, merchant.Location())
	count, err := g.visitRepo.CountSameDay(ctx, g.db, merchant.ID, customerID, from, to)
	if err != nil {
		return "", err
	}

	if count == 0 {
		return DecisionConfirmed, nil
	}

	g.log.Debug("same-day repeat check-in quarantined",
		zap.String("merchant_id", merchant.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("prior_today", count),
	)
	return DecisionPending, nil
}

// DayBounds returns the [start, end) of the calendar day containing at, in
// the merchant's local timezone, expressed in UTC.
func DayBounds(at time.Time, loc *time.Location) (time.Time, time.Time) {
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

var Module = fx.Module("shield.gate",
	fx.Provide(New),
)
