package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
)

// ClientSessionContext is the client-held daily marker, passed in
// explicitly rather than read from ambient device storage. It is a
// convenience only; the shield gate stays authoritative.
type ClientSessionContext struct {
	CheckedInToday bool   `json:"checked_in_today"`
	LastScanDate   string `json:"last_scan_date"`
}

type CheckInRequest struct {
	ScanCode  string
	Phone     string
	FirstName string
	LastName  string

	// Points defaults to 1 (visit mode); bulk mode passes a quantity > 1.
	Points int

	// Auto marks an automatic re-submission from the scan page; combined
	// with the session marker it short-circuits without writing a visit.
	Auto    bool
	Session ClientSessionContext
}

type ScanResult struct {
	Status        visitdomain.VisitStatus `json:"status"`
	VisitID       snowflake.ID            `json:"visit_id,omitempty"`
	CardID        snowflake.ID            `json:"loyalty_card_id"`
	CustomerID    snowflake.ID            `json:"customer_id"`
	CurrentStamps int                     `json:"current_stamps"`
	PointsEarned  int                     `json:"points_earned"`
	Tier          carddomain.TierState    `json:"tier"`
	Tier1Redeemed bool                    `json:"tier1_redeemed"`
	Tier2Redeemed bool                    `json:"tier2_redeemed"`
	PendingStamps int                     `json:"pending_stamps"`
	PendingCount  int64                   `json:"pending_count"`
}

type UndoRequest struct {
	VisitID    string
	CustomerID string
}

type UndoResult struct {
	VisitID       snowflake.ID `json:"visit_id"`
	Reverted      bool         `json:"reverted"`
	CurrentStamps int          `json:"current_stamps"`
}

type Service interface {
	CheckIn(ctx context.Context, req CheckInRequest) (ScanResult, error)

	// Undo retracts a just-recorded check-in inside the grace window: a
	// compensating action, not a transaction rollback.
	Undo(ctx context.Context, req UndoRequest) (UndoResult, error)
}

var (
	ErrUnknownScanCode = errors.New("unknown_scan_code")
	ErrInvalidPoints   = errors.New("invalid_points")
	ErrVisitNotFound   = errors.New("visit_not_found")
	ErrUndoExpired     = errors.New("undo_window_expired")
)
