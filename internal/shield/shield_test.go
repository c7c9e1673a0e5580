package shield

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	merchantrepo "github.com/smallbiznis/punchcard/internal/merchant/repository"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	visitrepo "github.com/smallbiznis/punchcard/internal/visit/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGate(t *testing.T) (*Gate, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&merchantdomain.Merchant{},
		&merchantdomain.Ban{},
		&visitdomain.Visit{},
	)
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	gate := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		VisitRepo: visitrepo.Provide(),
		BanRepo:   merchantrepo.Provide(),
	})
	return gate, db, node
}

func TestEvaluate_FirstCheckInOfDayConfirmed(t *testing.T) {
	gate, _, node := setupGate(t)

	merchant := merchantdomain.Merchant{ID: node.Generate(), Timezone: "UTC"}
	customerID := node.Generate()

	decision, err := gate.Evaluate(context.Background(), merchant, customerID, time.Now().UTC())
	assert.NoError(t, err)
	assert.Equal(t, DecisionConfirmed, decision)
}

func TestEvaluate_SameDayRepeatPending(t *testing.T) {
	gate, db, node := setupGate(t)

	merchant := merchantdomain.Merchant{ID: node.Generate(), Timezone: "UTC"}
	customerID := node.Generate()
	now := time.Now().UTC()

	db.Create(&visitdomain.Visit{
		ID:         node.Generate(),
		MerchantID: merchant.ID,
		CustomerID: customerID,
		CardID:     node.Generate(),
		Status:     visitdomain.StatusConfirmed,
		VisitedAt:  now.Add(-time.Hour),
	})

	decision, err := gate.Evaluate(context.Background(), merchant, customerID, now)
	assert.NoError(t, err)
	assert.Equal(t, DecisionPending, decision)
}

func TestEvaluate_RejectedVisitDoesNotCount(t *testing.T) {
	gate, db, node := setupGate(t)

	merchant := merchantdomain.Merchant{ID: node.Generate(), Timezone: "UTC"}
	customerID := node.Generate()
	now := time.Now().UTC()

	db.Create(&visitdomain.Visit{
		ID:         node.Generate(),
		MerchantID: merchant.ID,
		CustomerID: customerID,
		CardID:     node.Generate(),
		Status:     visitdomain.StatusRejected,
		VisitedAt:  now.Add(-time.Hour),
	})

	decision, err := gate.Evaluate(context.Background(), merchant, customerID, now)
	assert.NoError(t, err)
	assert.Equal(t, DecisionConfirmed, decision)
}

func TestEvaluate_BannedCustomer(t *testing.T) {
	gate, db, node := setupGate(t)

	merchant := merchantdomain.Merchant{ID: node.Generate(), Timezone: "UTC"}
	customerID := node.Generate()

	db.Create(&merchantdomain.Ban{
		ID:         node.Generate(),
		MerchantID: merchant.ID,
		CustomerID: customerID,
	})

	_, err := gate.Evaluate(context.Background(), merchant, customerID, time.Now().UTC())
	assert.ErrorIs(t, err, ErrBanned)
}

func TestDayBounds_MerchantLocalDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	// 2026-01-10 02:30 UTC is still 2026-01-09 in New York (EST, UTC-5).
	at := time.Date(2026, 1, 10, 2, 30, 0, 0, time.UTC)
	from, to := DayBounds(at, loc)

	assert.Equal(t, time.Date(2026, 1, 9, 5, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 1, 10, 5, 0, 0, 0, time.UTC), to)
	assert.True(t, !at.Before(from) && at.Before(to))
}

func TestDayBounds_UTCFallback(t *testing.T) {
	at := time.Date(2026, 7, 1, 23, 59, 0, 0, time.UTC)
	from, to := DayBounds(at, time.UTC)

	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC), to)
}
