package domain

import (
	"context"
	"errors"

	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
)

type ConfirmResponse struct {
	Visit visitdomain.Visit      `json:"visit"`
	Card  carddomain.LoyaltyCard `json:"card"`
}

// Service is the merchant-facing moderation queue over pending visits.
// Confirm and Reject are each a single allowed transition, from pending only.
type Service interface {
	ListPending(ctx context.Context, merchantID string, limit int) ([]visitdomain.Visit, error)
	Confirm(ctx context.Context, merchantID, visitID string) (ConfirmResponse, error)
	Reject(ctx context.Context, merchantID, visitID, reason string) (visitdomain.Visit, error)
}

var (
	ErrVisitNotFound = errors.New("visit_not_found")
	ErrInvalidID     = errors.New("invalid_visit_id")
)
