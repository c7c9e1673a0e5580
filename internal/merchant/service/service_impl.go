package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/clock"
	"github.com/smallbiznis/punchcard/internal/merchant/domain"
	pkgdb "github.com/smallbiznis/punchcard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("merchant.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMerchantRequest) (domain.Merchant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Merchant{}, domain.ErrInvalidName
	}
	if err := validateTiers(req.StampsRequired, req.Tier2Enabled, req.Tier2StampsRequired); err != nil {
		return domain.Merchant{}, err
	}
	if strings.TrimSpace(req.RewardDescription) == "" {
		return domain.Merchant{}, domain.ErrInvalidRewardText
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return domain.Merchant{}, domain.ErrInvalidTimezone
	}

	id := s.genID.Generate()
	scanCode := strings.TrimSpace(req.ScanCode)
	if scanCode == "" {
		scanCode = id.Base58()
	}

	now := s.clock.Now()
	merchant := domain.Merchant{
		ID:                     id,
		Name:                   name,
		ScanCode:               scanCode,
		Timezone:               timezone,
		ContactEmail:           strings.TrimSpace(req.ContactEmail),
		StampsRequired:         req.StampsRequired,
		RewardDescription:      strings.TrimSpace(req.RewardDescription),
		Tier2Enabled:           req.Tier2Enabled,
		Tier2StampsRequired:    req.Tier2StampsRequired,
		Tier2RewardDescription: strings.TrimSpace(req.Tier2RewardDescription),
		Metadata:               datatypes.JSONMap{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.repo.Insert(ctx, s.db, &merchant); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Merchant{}, domain.ErrScanCodeAlreadyInUse
		}
		return domain.Merchant{}, err
	}

	return merchant, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Merchant, error) {
	merchantID, err := parseID(id)
	if err != nil {
		return domain.Merchant{}, err
	}

	merchant, err := s.repo.FindByID(ctx, s.db, merchantID)
	if err != nil {
		return domain.Merchant{}, err
	}
	if merchant == nil {
		return domain.Merchant{}, domain.ErrNotFound
	}
	return *merchant, nil
}

func (s *Service) GetByScanCode(ctx context.Context, scanCode string) (domain.Merchant, error) {
	code := strings.TrimSpace(scanCode)
	if code == "" {
		return domain.Merchant{}, domain.ErrNotFound
	}

	merchant, err := s.repo.FindByScanCode(ctx, s.db, code)
	if err != nil {
		return domain.Merchant{}, err
	}
	if merchant == nil {
		return domain.Merchant{}, domain.ErrNotFound
	}
	return *merchant, nil
}

// UpdateLoyaltyConfig validates and persists new thresholds. Invalid
// configuration persists nothing.
func (s *Service) UpdateLoyaltyConfig(ctx context.Context, req domain.UpdateLoyaltyConfigRequest) (domain.Merchant, error) {
	merchant, err := s.GetByID(ctx, req.MerchantID)
	if err != nil {
		return domain.Merchant{}, err
	}

	if err := validateTiers(req.StampsRequired, req.Tier2Enabled, req.Tier2StampsRequired); err != nil {
		return domain.Merchant{}, err
	}
	if strings.TrimSpace(req.RewardDescription) == "" {
		return domain.Merchant{}, domain.ErrInvalidRewardText
	}

	merchant.StampsRequired = req.StampsRequired
	merchant.RewardDescription = strings.TrimSpace(req.RewardDescription)
	merchant.Tier2Enabled = req.Tier2Enabled
	merchant.Tier2StampsRequired = req.Tier2StampsRequired
	merchant.Tier2RewardDescription = strings.TrimSpace(req.Tier2RewardDescription)
	merchant.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateLoyaltyConfig(ctx, s.db, &merchant); err != nil {
		return domain.Merchant{}, err
	}

	s.log.Info("loyalty config updated",
		zap.String("merchant_id", merchant.ID.String()),
		zap.Int("stamps_required", merchant.StampsRequired),
		zap.Bool("tier2_enabled", merchant.Tier2Enabled),
	)

	return merchant, nil
}

func (s *Service) Ban(ctx context.Context, req domain.BanRequest) error {
	merchant, err := s.GetByID(ctx, req.MerchantID)
	if err != nil {
		return err
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.ErrInvalidCustomerID
	}

	ban := domain.Ban{
		ID:         s.genID.Generate(),
		MerchantID: merchant.ID,
		CustomerID: customerID,
		Reason:     strings.TrimSpace(req.Reason),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertBan(ctx, s.db, &ban); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Service) Unban(ctx context.Context, merchantID, customerID string) error {
	merchant, err := s.GetByID(ctx, merchantID)
	if err != nil {
		return err
	}
	id, err := snowflake.ParseString(strings.TrimSpace(customerID))
	if err != nil || id == 0 {
		return domain.ErrInvalidCustomerID
	}
	return s.repo.DeleteBan(ctx, s.db, merchant.ID, id)
}

func (s *Service) IsBanned(ctx context.Context, merchantID, customerID snowflake.ID) (bool, error) {
	return s.repo.BanExists(ctx, s.db, merchantID, customerID)
}

func validateTiers(stampsRequired int, tier2Enabled bool, tier2StampsRequired int) error {
	if stampsRequired <= 0 {
		return domain.ErrInvalidStampsRequired
	}
	if tier2Enabled && tier2StampsRequired <= stampsRequired {
		return domain.ErrTierThresholdOrder
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
