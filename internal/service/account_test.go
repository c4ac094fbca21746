package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/shopify"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// ============================================================================
// Test doubles
// ============================================================================

type mockClassic struct {
	mock.Mock
}

func (m *mockClassic) CustomerAccessTokenCreate(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessToken), args.Error(1)
}

func (m *mockClassic) CustomerAccessTokenRenew(ctx context.Context, token string) (*domain.AccessToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessToken), args.Error(1)
}

func (m *mockClassic) CustomerCreate(ctx context.Context, in domain.CustomerCreate) (*domain.Customer, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockClassic) CustomerRecover(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockClassic) CustomerReset(ctx context.Context, customerID, resetToken, password string) (*domain.AccessToken, error) {
	args := m.Called(ctx, customerID, resetToken, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccessToken), args.Error(1)
}

type mockAccount struct {
	mockCustomers
}

func (m *mockAccount) Addresses(ctx context.Context) ([]domain.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockAccount) Orders(ctx context.Context, first int, after string) (pagination.Page[domain.Order], error) {
	args := m.Called(ctx, first, after)
	return args.Get(0).(pagination.Page[domain.Order]), args.Error(1)
}

func (m *mockAccount) Order(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockAccount) UpdateCustomer(ctx context.Context, in domain.CustomerUpdate) (*domain.Customer, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockAccount) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockAccount) UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockAccount) DeleteAddress(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *mockAccount) SetDefaultAddress(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestAccountService() (*AccountService, *mockClassic, *mockAccount) {
	classic := new(mockClassic)
	account := new(mockAccount)
	return NewAccountService(classic, account, newTestLogger()), classic, account
}

// ============================================================================
// Classic customer
// ============================================================================

func TestLogin_Success(t *testing.T) {
	svc, classic, _ := newTestAccountService()
	expires := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	classic.On("CustomerAccessTokenCreate", mock.Anything, "ada@example.com", "secret").
		Return(&domain.AccessToken{AccessToken: "tok", ExpiresAt: expires}, nil)

	token, err := svc.Login(context.Background(), " ada@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
	assert.Equal(t, expires, token.ExpiresAt)
}

func TestLogin_MissingFields(t *testing.T) {
	svc, classic, _ := newTestAccountService()

	for _, tc := range [][2]string{{"", "pw"}, {"a@b.c", ""}, {"  ", "pw"}} {
		_, err := svc.Login(context.Background(), tc[0], tc[1])
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	}
	classic.AssertNotCalled(t, "CustomerAccessTokenCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_FailuresAre401(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"user error", &shopify.UserErrors{Errors: []shopify.UserError{{Code: "UNIDENTIFIED_CUSTOMER", Message: "Unidentified customer"}}}, "Unidentified customer"},
		{"upstream", apperrors.BadGateway("upstream down", nil), "Login failed"},
		{"not configured", apperrors.NotConfigured("SHOPIFY_STORE_DOMAIN"), "Login failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, classic, _ := newTestAccountService()
			classic.On("CustomerAccessTokenCreate", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := svc.Login(context.Background(), "ada@example.com", "bad")
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRegister(t *testing.T) {
	svc, classic, _ := newTestAccountService()
	in := domain.CustomerCreate{Email: "ada@example.com", Password: "secret1"}
	classic.On("CustomerCreate", mock.Anything, in).Return(&domain.Customer{ID: "c1", Email: in.Email}, nil)

	c, err := svc.Register(context.Background(), domain.CustomerCreate{Email: " ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	classic.AssertExpectations(t)
}

func TestRecover_HidesUnknownAddresses(t *testing.T) {
	svc, classic, _ := newTestAccountService()
	classic.On("CustomerRecover", mock.Anything, "nobody@example.com").
		Return(&shopify.UserErrors{Errors: []shopify.UserError{{Message: "Could not find customer"}}})

	msg, err := svc.Recover(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Equal(t, RecoverMessage, msg)
}

func TestRecover_UpstreamFailureIsReported(t *testing.T) {
	svc, classic, _ := newTestAccountService()
	classic.On("CustomerRecover", mock.Anything, "ada@example.com").Return(apperrors.BadGateway("down", nil))

	_, err := svc.Recover(context.Background(), "ada@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrBadGateway))

	_, err = svc.Recover(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestReset(t *testing.T) {
	svc, classic, _ := newTestAccountService()
	classic.On("CustomerReset", mock.Anything, "gid://shopify/Customer/1", "reset", "newpass").
		Return(&domain.AccessToken{AccessToken: "tok"}, nil)

	token, err := svc.Reset(context.Background(), "gid://shopify/Customer/1", "reset", "newpass")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)

	_, err = svc.Reset(context.Background(), "", "reset", "newpass")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestRenew(t *testing.T) {
	svc, classic, _ := newTestAccountService()
	classic.On("CustomerAccessTokenRenew", mock.Anything, "old").Return(&domain.AccessToken{AccessToken: "old"}, nil)
	classic.On("CustomerAccessTokenRenew", mock.Anything, "expired").
		Return(nil, &shopify.UserErrors{Errors: []shopify.UserError{{Message: "access token does not exist"}}})

	token, err := svc.Renew(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, "old", token.AccessToken)

	_, err = svc.Renew(context.Background(), "expired")
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))

	_, err = svc.Renew(context.Background(), "")
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
}

// ============================================================================
// Customer Account
// ============================================================================

func TestOrders(t *testing.T) {
	svc, _, account := newTestAccountService()
	page := pagination.NewPage([]domain.Order{{ID: "o1", Name: "#1001"}}, pagination.PageInfo{HasNextPage: true, EndCursor: "c1"})
	account.On("Orders", mock.Anything, 10, "").Return(page, nil)

	got, err := svc.Orders(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Equal(t, page, got)
}

func TestOrders_NotConfiguredIs401(t *testing.T) {
	svc, _, account := newTestAccountService()
	account.On("Orders", mock.Anything, 0, "").
		Return(pagination.Page[domain.Order]{}, apperrors.NotConfigured("SHOPIFY_CUSTOMER_ACCOUNT_API_VERSION"))

	_, err := svc.Orders(context.Background(), 0, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
}

func TestOrder(t *testing.T) {
	svc, _, account := newTestAccountService()
	account.On("Order", mock.Anything, "gid://shopify/Order/1").Return(&domain.Order{ID: "gid://shopify/Order/1"}, nil)
	account.On("Order", mock.Anything, "gid://shopify/Order/2").Return(nil, apperrors.NotFound("order", "gid://shopify/Order/2"))

	o, err := svc.Order(context.Background(), "gid://shopify/Order/1")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Order/1", o.ID)

	_, err = svc.Order(context.Background(), "gid://shopify/Order/2")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = svc.Order(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestAddressOperations(t *testing.T) {
	svc, _, account := newTestAccountService()
	ctx := context.Background()
	in := domain.AddressInput{Address1: "1 Main St", City: "Berlin", Country: "DE", Zip: "10115"}

	account.On("Addresses", mock.Anything).Return([]domain.Address{{ID: "a1"}}, nil)
	account.On("CreateAddress", mock.Anything, in).Return(&domain.Address{ID: "a2", Address1: in.Address1}, nil)
	account.On("UpdateAddress", mock.Anything, "a2", in).Return(&domain.Address{ID: "a2"}, nil)
	account.On("SetDefaultAddress", mock.Anything, "a2").Return(nil)
	account.On("DeleteAddress", mock.Anything, "a1").Return("a1", nil)

	addrs, err := svc.Addresses(ctx)
	require.NoError(t, err)
	assert.Len(t, addrs, 1)

	created, err := svc.CreateAddress(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "a2", created.ID)

	_, err = svc.UpdateAddress(ctx, "a2", in)
	require.NoError(t, err)
	require.NoError(t, svc.SetDefaultAddress(ctx, "a2"))

	deleted, err := svc.DeleteAddress(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", deleted)
	account.AssertExpectations(t)

	_, err = svc.UpdateAddress(ctx, "", in)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	_, err = svc.DeleteAddress(ctx, "")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.True(t, errors.Is(svc.SetDefaultAddress(ctx, ""), apperrors.ErrInvalidInput))
}

func TestAddressOperations_UserErrorsAre400(t *testing.T) {
	svc, _, account := newTestAccountService()
	account.On("CreateAddress", mock.Anything, mock.Anything).
		Return(nil, &shopify.UserErrors{Op: "customerAddressCreate", Errors: []shopify.UserError{{Message: "Zip is invalid"}}})

	_, err := svc.CreateAddress(context.Background(), domain.AddressInput{})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Equal(t, "Zip is invalid", err.Error())
}

func TestUpdateProfile(t *testing.T) {
	svc, _, account := newTestAccountService()
	in := domain.CustomerUpdate{FirstName: "Ada"}
	account.On("UpdateCustomer", mock.Anything, in).Return(&domain.Customer{ID: "c1", FirstName: "Ada"}, nil)

	c, err := svc.UpdateProfile(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Ada", c.FirstName)

	_, err = svc.UpdateProfile(context.Background(), domain.CustomerUpdate{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
