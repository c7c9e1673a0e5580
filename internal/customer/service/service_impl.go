package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/punchcard/internal/clock"
	"github.com/smallbiznis/punchcard/internal/customer/domain"
	pkgdb "github.com/smallbiznis/punchcard/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Resolve looks up a phone for a merchant: exact (merchant, phone) match
// first, then any-merchant match exposing only name data for bootstrap.
func (s *Service) Resolve(ctx context.Context, req domain.ResolveRequest) (domain.Resolution, error) {
	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return domain.Resolution{}, err
	}

	existing, err := s.repo.FindByMerchantAndPhone(ctx, s.db, req.MerchantID, phone)
	if err != nil {
		return domain.Resolution{}, err
	}
	if existing != nil {
		return domain.Resolution{
			Customer:          existing,
			ExistsForMerchant: true,
			ExistsGlobally:    true,
			FirstName:         existing.FirstName,
			LastName:          existing.LastName,
		}, nil
	}

	other, err := s.repo.FindAnyByPhone(ctx, s.db, phone)
	if err != nil {
		return domain.Resolution{}, err
	}
	if other != nil {
		return domain.Resolution{
			ExistsGlobally: true,
			FirstName:      other.FirstName,
			LastName:       other.LastName,
		}, nil
	}

	return domain.Resolution{}, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	phone, err := domain.NormalizePhone(req.Phone)
	if err != nil {
		return domain.Customer{}, err
	}

	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return domain.Customer{}, domain.ErrFirstNameRequired
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:         s.genID.Generate(),
		MerchantID: req.MerchantID,
		Phone:      phone,
		FirstName:  firstName,
		LastName:   strings.TrimSpace(req.LastName),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByMerchantAndPhone(ctx, s.db, req.MerchantID, phone)
			if findErr == nil && existing != nil {
				return *existing, nil
			}
		}
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, merchantID snowflake.ID, id string) (domain.Customer, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || customerID == 0 {
		return domain.Customer{}, domain.ErrInvalidID
	}

	customer, err := s.repo.FindByID(ctx, s.db, merchantID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

// CorrectName is the only permitted mutation of an existing customer.
func (s *Service) CorrectName(ctx context.Context, merchantID snowflake.ID, id, firstName, lastName string) (domain.Customer, error) {
	customer, err := s.GetByID(ctx, merchantID, id)
	if err != nil {
		return domain.Customer{}, err
	}

	first := strings.TrimSpace(firstName)
	if first == "" {
		return domain.Customer{}, domain.ErrFirstNameRequired
	}

	customer.FirstName = first
	customer.LastName = strings.TrimSpace(lastName)
	customer.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdateName(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}
