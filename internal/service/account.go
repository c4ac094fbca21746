package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/shopify"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// RecoverMessage is returned for every password recovery request, whether
// or not the address belongs to a customer.
const RecoverMessage = "If an account exists for this email, a password reset link has been sent."

// ClassicCustomerAPI is the Storefront API's password-based customer surface.
type ClassicCustomerAPI interface {
	CustomerAccessTokenCreate(ctx context.Context, email, password string) (*domain.AccessToken, error)
	CustomerAccessTokenRenew(ctx context.Context, token string) (*domain.AccessToken, error)
	CustomerCreate(ctx context.Context, in domain.CustomerCreate) (*domain.Customer, error)
	CustomerRecover(ctx context.Context, email string) error
	CustomerReset(ctx context.Context, customerID, resetToken, password string) (*domain.AccessToken, error)
}

// CustomerAccountAPI is the Customer Account API. Every call expects the
// access token in ctx.
type CustomerAccountAPI interface {
	CustomerReader
	Addresses(ctx context.Context) ([]domain.Address, error)
	Orders(ctx context.Context, first int, after string) (pagination.Page[domain.Order], error)
	Order(ctx context.Context, id string) (*domain.Order, error)
	UpdateCustomer(ctx context.Context, in domain.CustomerUpdate) (*domain.Customer, error)
	CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error)
	UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error)
	DeleteAddress(ctx context.Context, id string) (string, error)
	SetDefaultAddress(ctx context.Context, id string) error
}

// AccountService serves the classic customer endpoints and the signed-in
// customer's account pages.
type AccountService struct {
	classic ClassicCustomerAPI
	account CustomerAccountAPI
	logger  *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(classic ClassicCustomerAPI, account CustomerAccountAPI, logger *slog.Logger) *AccountService {
	return &AccountService{classic: classic, account: account, logger: logger}
}

// accountError reports a missing Customer Account configuration as 401, the
// way the account routes answer an anonymous visitor.
func accountError(err error) error {
	if !errors.Is(err, shopify.ErrNotConfigured) {
		return err
	}
	msg := "customer account is not configured"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return apperrors.Unauthorized(msg)
}

// Login exchanges an email and password for a classic customer token. Every
// remote failure is a 401.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.InvalidInput("Email and password are required")
	}

	token, err := s.classic.CustomerAccessTokenCreate(ctx, email, password)
	if err != nil {
		s.logger.InfoContext(ctx, "classic login failed", slog.String("error", err.Error()))
		var ue *shopify.UserErrors
		if errors.As(err, &ue) {
			return nil, apperrors.Unauthorized(ue.Error())
		}
		return nil, apperrors.Unauthorized("Login failed")
	}
	return token, nil
}

// Register creates a classic customer.
func (s *AccountService) Register(ctx context.Context, in domain.CustomerCreate) (*domain.Customer, error) {
	in.Email = strings.TrimSpace(in.Email)
	customer, err := s.classic.CustomerCreate(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "customer registered", slog.String("customer_id", customer.ID))
	return customer, nil
}

// Recover sends a password reset email. Rejections of the address are not
// reported so the endpoint cannot be used to probe for accounts.
func (s *AccountService) Recover(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", apperrors.InvalidInput("Email is required")
	}
	if err := s.classic.CustomerRecover(ctx, email); err != nil {
		var ue *shopify.UserErrors
		if !errors.As(err, &ue) {
			return "", err
		}
		s.logger.DebugContext(ctx, "password recovery rejected", slog.String("error", ue.Error()))
	}
	return RecoverMessage, nil
}

// Reset sets a new password using the token from a reset email.
func (s *AccountService) Reset(ctx context.Context, customerID, resetToken, password string) (*domain.AccessToken, error) {
	if customerID == "" || resetToken == "" || password == "" {
		return nil, apperrors.InvalidInput("Customer id, reset token and password are required")
	}
	return s.classic.CustomerReset(ctx, customerID, resetToken, password)
}

// Renew extends a classic customer token.
func (s *AccountService) Renew(ctx context.Context, token string) (*domain.AccessToken, error) {
	if token == "" {
		return nil, apperrors.InvalidInput("Access token is required")
	}
	renewed, err := s.classic.CustomerAccessTokenRenew(ctx, token)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, apperrors.Unauthorized(err.Error())
		}
		return nil, err
	}
	return renewed, nil
}

// Orders lists the signed-in customer's orders, newest first.
func (s *AccountService) Orders(ctx context.Context, first int, after string) (pagination.Page[domain.Order], error) {
	page, err := s.account.Orders(ctx, first, after)
	if err != nil {
		return pagination.Page[domain.Order]{}, accountError(err)
	}
	return page, nil
}

// Order returns one order of the signed-in customer.
func (s *AccountService) Order(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}
	order, err := s.account.Order(ctx, id)
	if err != nil {
		return nil, accountError(err)
	}
	return order, nil
}

// Addresses lists the signed-in customer's addresses.
func (s *AccountService) Addresses(ctx context.Context) ([]domain.Address, error) {
	addrs, err := s.account.Addresses(ctx)
	if err != nil {
		return nil, accountError(err)
	}
	return addrs, nil
}

func (s *AccountService) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	addr, err := s.account.CreateAddress(ctx, in)
	if err != nil {
		return nil, accountError(err)
	}
	return addr, nil
}

func (s *AccountService) UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}
	addr, err := s.account.UpdateAddress(ctx, id, in)
	if err != nil {
		return nil, accountError(err)
	}
	return addr, nil
}

// DeleteAddress deletes an address and returns the deleted id.
func (s *AccountService) DeleteAddress(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", apperrors.InvalidInput("address id is required")
	}
	deleted, err := s.account.DeleteAddress(ctx, id)
	if err != nil {
		return "", accountError(err)
	}
	return deleted, nil
}

func (s *AccountService) SetDefaultAddress(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("address id is required")
	}
	return accountError(s.account.SetDefaultAddress(ctx, id))
}

// UpdateProfile changes the signed-in customer's name.
func (s *AccountService) UpdateProfile(ctx context.Context, in domain.CustomerUpdate) (*domain.Customer, error) {
	if in.FirstName == "" && in.LastName == "" {
		return nil, apperrors.InvalidInput("nothing to update")
	}
	customer, err := s.account.UpdateCustomer(ctx, in)
	if err != nil {
		return nil, accountError(err)
	}
	return customer, nil
}
