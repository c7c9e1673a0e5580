package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	cardrepo "github.com/smallbiznis/punchcard/internal/card/repository"
	cardservice "github.com/smallbiznis/punchcard/internal/card/service"
	"github.com/smallbiznis/punchcard/internal/checkin/domain"
	"github.com/smallbiznis/punchcard/internal/clock"
	"github.com/smallbiznis/punchcard/internal/config"
	customerdomain "github.com/smallbiznis/punchcard/internal/customer/domain"
	customerrepo "github.com/smallbiznis/punchcard/internal/customer/repository"
	customerservice "github.com/smallbiznis/punchcard/internal/customer/service"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	merchantrepo "github.com/smallbiznis/punchcard/internal/merchant/repository"
	merchantservice "github.com/smallbiznis/punchcard/internal/merchant/service"
	"github.com/smallbiznis/punchcard/internal/moderation"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
	redemptionrepo "github.com/smallbiznis/punchcard/internal/redemption/repository"
	"github.com/smallbiznis/punchcard/internal/shield"
	visitdomain "github.com/smallbiznis/punchcard/internal/visit/domain"
	visitrepo "github.com/smallbiznis/punchcard/internal/visit/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturingEmail struct {
	mu       sync.Mutex
	subjects []string
}

func (c *capturingEmail) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

func (c *capturingEmail) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subjects)
}

type fixture struct {
	svc         domain.Service
	db          *gorm.DB
	clk         *clock.FakeClock
	node        *snowflake.Node
	merchantSvc merchantdomain.Service
	customerSvc customerdomain.Service
	cardSvc     carddomain.Service
	emails      *capturingEmail
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&merchantdomain.Merchant{},
		&merchantdomain.Ban{},
		&customerdomain.Customer{},
		&carddomain.LoyaltyCard{},
		&visitdomain.Visit{},
		&visitdomain.PointAdjustment{},
		&redemptiondomain.Redemption{},
	)
	assert.NoError(t, err)

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC))

	mRepo := merchantrepo.Provide()
	cRepo := customerrepo.Provide()
	cardRepo := cardrepo.Provide()
	vRepo := visitrepo.Provide()
	rRepo := redemptionrepo.Provide()

	merchantSvc := merchantservice.New(merchantservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: mRepo})
	customerSvc := customerservice.New(customerservice.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: cRepo})
	cardSvc := cardservice.New(cardservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: cardRepo, VisitRepo: vRepo, RedemptionRepo: rRepo,
	})

	emails := &capturingEmail{}
	notifier := moderation.NewNotifier(moderation.NotifierParams{Log: log, Email: emails})
	gate := shield.New(shield.Params{DB: db, Log: log, VisitRepo: vRepo, BanRepo: mRepo})

	cfg := config.Config{
		Shield: config.ShieldConfig{UndoWindow: 15 * time.Second},
	}

	svc := New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Cfg:         cfg,
		Clock:       clk,
		MerchantSvc: merchantSvc,
		CustomerSvc: customerSvc,
		CardSvc:     cardSvc,
		CardRepo:    cardRepo,
		VisitRepo:   vRepo,
		RedeemRepo:  rRepo,
		Gate:        gate,
		Notifier:    notifier,
	})

	return &fixture{
		svc:         svc,
		db:          db,
		clk:         clk,
		node:        node,
		merchantSvc: merchantSvc,
		customerSvc: customerSvc,
		cardSvc:     cardSvc,
		emails:      emails,
	}
}

func (f *fixture) newMerchant(t *testing.T, stampsRequired int) merchantdomain.Merchant {
	t.Helper()
	merchant, err := f.merchantSvc.Create(context.Background(), merchantdomain.CreateMerchantRequest{
		Name:              "Corner Cafe",
		Timezone:          "UTC",
		ContactEmail:      "owner@example.com",
		StampsRequired:    stampsRequired,
		RewardDescription: "Free coffee",
	})
	assert.NoError(t, err)
	return merchant
}

func (f *fixture) scan(t *testing.T, merchant merchantdomain.Merchant, phone, firstName string) domain.ScanResult {
	t.Helper()
	result, err := f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode:  merchant.ScanCode,
		Phone:     phone,
		FirstName: firstName,
	})
	assert.NoError(t, err)
	return result
}

func TestCheckIn_FirstScanConfirmed(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result := f.scan(t, merchant, "5551234567", "Ada")

	assert.Equal(t, visitdomain.StatusConfirmed, result.Status)
	assert.Equal(t, 1, result.CurrentStamps)
	assert.Equal(t, 1, result.PointsEarned)
	assert.Equal(t, carddomain.PhaseTier1Locked, result.Tier.Phase)
	assert.Equal(t, 8, result.Tier.ActiveTarget)

	var visit visitdomain.Visit
	assert.NoError(t, f.db.Where("id = ?", result.VisitID).Take(&visit).Error)
	assert.Equal(t, visitdomain.StatusConfirmed, visit.Status)
	assert.Equal(t, 1, visit.Cycle)
}

func TestCheckIn_SameDayRepeatQuarantined(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	first := f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(2 * time.Hour)
	second := f.scan(t, merchant, "5551234567", "Ada")

	assert.Equal(t, visitdomain.StatusConfirmed, first.Status)
	assert.Equal(t, visitdomain.StatusPending, second.Status)

	// Pending stamps are excluded from the confirmed counter.
	assert.Equal(t, 1, second.CurrentStamps)
	assert.Equal(t, 1, second.PendingStamps)
	assert.Equal(t, int64(1), second.PendingCount)

	var visit visitdomain.Visit
	assert.NoError(t, f.db.Where("id = ?", second.VisitID).Take(&visit).Error)
	assert.Equal(t, shield.FlagReasonRepeat, visit.FlaggedReason)

	// First pending visit notifies the merchant once.
	assert.Equal(t, 1, f.emails.Count())

	f.clk.Advance(time.Hour)
	third := f.scan(t, merchant, "5551234567", "Ada")
	assert.Equal(t, visitdomain.StatusPending, third.Status)
	assert.Equal(t, 1, f.emails.Count())
}

func TestCheckIn_NextDayConfirmedAgain(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(24 * time.Hour)
	result := f.scan(t, merchant, "5551234567", "Ada")

	assert.Equal(t, visitdomain.StatusConfirmed, result.Status)
	assert.Equal(t, 2, result.CurrentStamps)
}

func TestCheckIn_BannedCustomerLeavesNoTrace(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result := f.scan(t, merchant, "5551234567", "Ada")

	err := f.merchantSvc.Ban(context.Background(), merchantdomain.BanRequest{
		MerchantID: merchant.ID.String(),
		CustomerID: result.CustomerID.String(),
	})
	assert.NoError(t, err)

	f.clk.Advance(24 * time.Hour)
	_, err = f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode:  merchant.ScanCode,
		Phone:     "5551234567",
		FirstName: "Ada",
	})
	assert.ErrorIs(t, err, shield.ErrBanned)

	var count int64
	assert.NoError(t, f.db.Model(&visitdomain.Visit{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCheckIn_UnknownScanCode(t *testing.T) {
	f := setup(t)

	_, err := f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode:  "no-such-code",
		Phone:     "5551234567",
		FirstName: "Ada",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownScanCode)
}

func TestCheckIn_NewCustomerRequiresFirstName(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	_, err := f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode: merchant.ScanCode,
		Phone:    "5551234567",
	})
	assert.ErrorIs(t, err, customerdomain.ErrFirstNameRequired)
}

func TestCheckIn_CrossMerchantNameBootstrap(t *testing.T) {
	f := setup(t)
	cafe := f.newMerchant(t, 8)
	bakery := f.newMerchant(t, 10)

	f.scan(t, cafe, "5551234567", "Ada")

	// Same phone at a different merchant, no name provided.
	result, err := f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode: bakery.ScanCode,
		Phone:    "5551234567",
	})
	assert.NoError(t, err)
	assert.Equal(t, visitdomain.StatusConfirmed, result.Status)

	customer, err := f.customerSvc.GetByID(context.Background(), bakery.ID, result.CustomerID.String())
	assert.NoError(t, err)
	assert.Equal(t, "Ada", customer.FirstName)
	assert.Equal(t, bakery.ID, customer.MerchantID)
}

func TestCheckIn_IndependentProgressPerMerchant(t *testing.T) {
	f := setup(t)
	cafe := f.newMerchant(t, 8)
	bakery := f.newMerchant(t, 10)

	atCafe := f.scan(t, cafe, "5551234567", "Ada")
	atBakery := f.scan(t, bakery, "5551234567", "Ada")

	assert.NotEqual(t, atCafe.CardID, atBakery.CardID)
	assert.Equal(t, 1, atCafe.CurrentStamps)
	assert.Equal(t, 1, atBakery.CurrentStamps)
	assert.Equal(t, 8, atCafe.Tier.ActiveTarget)
	assert.Equal(t, 10, atBakery.Tier.ActiveTarget)
}

func TestCheckIn_BulkPoints(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result, err := f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode:  merchant.ScanCode,
		Phone:     "5551234567",
		FirstName: "Ada",
		Points:    5,
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, result.CurrentStamps)
	assert.Equal(t, 5, result.PointsEarned)
}

func TestCheckIn_AutoRepeatShortCircuits(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	first := f.scan(t, merchant, "5551234567", "Ada")

	result, err := f.svc.CheckIn(context.Background(), domain.CheckInRequest{
		ScanCode: merchant.ScanCode,
		Phone:    "5551234567",
		Auto:     true,
		Session: domain.ClientSessionContext{
			CheckedInToday: true,
			LastScanDate:   f.clk.Now().Format("2006-01-02"),
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, result.PointsEarned)
	assert.Equal(t, first.CurrentStamps, result.CurrentStamps)

	var count int64
	assert.NoError(t, f.db.Model(&visitdomain.Visit{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUndo_ConfirmedVisitReversed(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result := f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(5 * time.Second)

	undo, err := f.svc.Undo(context.Background(), domain.UndoRequest{
		VisitID:    result.VisitID.String(),
		CustomerID: result.CustomerID.String(),
	})
	assert.NoError(t, err)
	assert.True(t, undo.Reverted)
	assert.Equal(t, 0, undo.CurrentStamps)

	// The confirmed visit stays in the ledger; a compensating adjustment
	// cancels it out.
	card, err := f.cardSvc.GetByID(context.Background(), result.CardID.String())
	assert.NoError(t, err)
	derived, err := f.cardSvc.DerivedStamps(context.Background(), card)
	assert.NoError(t, err)
	assert.Equal(t, card.CurrentStamps, derived)
	assert.Equal(t, 0, derived)
}

func TestUndo_PendingVisitRejected(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(time.Minute)
	pending := f.scan(t, merchant, "5551234567", "Ada")
	assert.Equal(t, visitdomain.StatusPending, pending.Status)
	f.clk.Advance(5 * time.Second)

	undo, err := f.svc.Undo(context.Background(), domain.UndoRequest{
		VisitID:    pending.VisitID.String(),
		CustomerID: pending.CustomerID.String(),
	})
	assert.NoError(t, err)
	assert.True(t, undo.Reverted)
	assert.Equal(t, 1, undo.CurrentStamps)

	var visit visitdomain.Visit
	assert.NoError(t, f.db.Where("id = ?", pending.VisitID).Take(&visit).Error)
	assert.Equal(t, visitdomain.StatusRejected, visit.Status)
}

func TestUndo_WindowExpired(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result := f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(16 * time.Second)

	_, err := f.svc.Undo(context.Background(), domain.UndoRequest{
		VisitID:    result.VisitID.String(),
		CustomerID: result.CustomerID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrUndoExpired)
}

func TestUndo_WrongCustomer(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result := f.scan(t, merchant, "5551234567", "Ada")

	_, err := f.svc.Undo(context.Background(), domain.UndoRequest{
		VisitID:    result.VisitID.String(),
		CustomerID: f.node.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrVisitNotFound)
}

func TestUndo_AlreadyRejectedIsNoOp(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(time.Minute)
	pending := f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(time.Second)

	req := domain.UndoRequest{
		VisitID:    pending.VisitID.String(),
		CustomerID: pending.CustomerID.String(),
	}
	first, err := f.svc.Undo(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, first.Reverted)

	second, err := f.svc.Undo(context.Background(), req)
	assert.NoError(t, err)
	assert.False(t, second.Reverted)
	assert.Equal(t, first.CurrentStamps, second.CurrentStamps)
}

func TestUndo_ConfirmedReplayIsNoOp(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	result := f.scan(t, merchant, "5551234567", "Ada")
	f.clk.Advance(time.Second)

	req := domain.UndoRequest{
		VisitID:    result.VisitID.String(),
		CustomerID: result.CustomerID.String(),
	}
	first, err := f.svc.Undo(context.Background(), req)
	assert.NoError(t, err)
	assert.True(t, first.Reverted)
	assert.Equal(t, 0, first.CurrentStamps)

	second, err := f.svc.Undo(context.Background(), req)
	assert.NoError(t, err)
	assert.False(t, second.Reverted)
	assert.Equal(t, 0, second.CurrentStamps)

	// Exactly one compensating adjustment regardless of retries.
	var adjustments int64
	assert.NoError(t, f.db.Model(&visitdomain.PointAdjustment{}).
		Where("visit_id = ?", result.VisitID).
		Count(&adjustments).Error)
	assert.Equal(t, int64(1), adjustments)

	card, err := f.cardSvc.GetByID(context.Background(), result.CardID.String())
	assert.NoError(t, err)
	assert.Equal(t, 0, card.CurrentStamps)
}

func TestCheckIn_CounterAlwaysMatchesLedger(t *testing.T) {
	f := setup(t)
	merchant := f.newMerchant(t, 8)

	var cardID string
	for day := 0; day < 5; day++ {
		result := f.scan(t, merchant, "5551234567", "Ada")
		cardID = result.CardID.String()
		f.clk.Advance(24 * time.Hour)
	}

	card, err := f.cardSvc.GetByID(context.Background(), cardID)
	assert.NoError(t, err)
	derived, err := f.cardSvc.DerivedStamps(context.Background(), card)
	assert.NoError(t, err)
	assert.Equal(t, 5, card.CurrentStamps)
	assert.Equal(t, card.CurrentStamps, derived)
}
