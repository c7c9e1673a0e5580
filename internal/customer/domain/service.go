package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type ResolveRequest struct {
	MerchantID snowflake.ID
	Phone      string
}

// Resolution is the identity lookup result. When the phone is known only to
// other merchants, solely the name fields are exposed (PII scoping): the
// caller may bootstrap a new registration from them but sees nothing else.
type Resolution struct {
	Customer          *Customer
	ExistsForMerchant bool
	ExistsGlobally    bool
	FirstName         string
	LastName          string
}

type CreateCustomerRequest struct {
	MerchantID snowflake.ID
	Phone      string
	FirstName  string
	LastName   string
}

type Service interface {
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, error)
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, merchantID snowflake.ID, id string) (Customer, error)
	CorrectName(ctx context.Context, merchantID snowflake.ID, id, firstName, lastName string) (Customer, error)
}

var (
	ErrInvalidPhone      = errors.New("invalid_phone")
	ErrFirstNameRequired = errors.New("invalid_first_name")
	ErrInvalidID         = errors.New("invalid_customer_id")
	ErrNotFound          = errors.New("customer_not_found")
)
