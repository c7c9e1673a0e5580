package moderation

import (
	"context"
	"fmt"

	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	"github.com/smallbiznis/punchcard/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type NotifierParams struct {
	fx.In

	Log   *zap.Logger
	Email email.Provider
}

// Notifier sends merchant-facing moderation emails. Sends are
// fire-and-forget: failures are logged, never propagated to the check-in
// path.
type Notifier struct {
	log   *zap.Logger
	email email.Provider
}

func NewNotifier(p NotifierParams) *Notifier {
	return &Notifier{
		log:   p.Log.Named("moderation.notifier"),
		email: p.Email,
	}
}

// PendingArrived fires when the merchant's pending count crosses from 0 to >0.
func (n *Notifier) PendingArrived(ctx context.Context, merchant merchantdomain.Merchant, pendingCount int64) {
	n.send(ctx, merchant, pendingCount,
		"Check-ins waiting for your review",
		"A visit was flagged for review at %s. You have %d check-in(s) waiting.",
	)
}

// PendingReminder fires from the scheduler when pending visits stay
// unresolved past the configured delay.
func (n *Notifier) PendingReminder(ctx context.Context, merchant merchantdomain.Merchant, pendingCount int64) {
	n.send(ctx, merchant, pendingCount,
		"Reminder: check-ins still waiting for review",
		"You still have %[2]d unreviewed check-in(s) at %[1]s.",
	)
}

func (n *Notifier) send(ctx context.Context, merchant merchantdomain.Merchant, pendingCount int64, subject, bodyFormat string) {
	if merchant.ContactEmail == "" {
		return
	}

	body := fmt.Sprintf("<p>"+bodyFormat+"</p>", merchant.Name, pendingCount)
	if err := n.email.Send(ctx, []string{merchant.ContactEmail}, subject, body); err != nil {
		n.log.Warn("moderation notification failed",
			zap.String("merchant_id", merchant.ID.String()),
			zap.Error(err),
		)
	}
}
