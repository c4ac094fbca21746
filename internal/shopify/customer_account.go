package shopify

import (
	"context"
	"net/http"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/graphql"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httpclient"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// DefaultCustomerAccountURL is the Customer Account GraphQL endpoint.
const DefaultCustomerAccountURL = "https://customer-api.shopify.com/graphql"

// DefaultOrdersFirst is the page size of the order history.
const DefaultOrdersFirst = 10

// CustomerAccountConfig configures the Customer Account GraphQL client.
type CustomerAccountConfig struct {
	Endpoint   string
	APIVersion string
}

type accessTokenKey struct{}

// WithAccessToken returns a context carrying the customer's access token.
// The Customer Account client reads the token from the context on every
// call so one client can serve every session.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func accessTokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(accessTokenKey{}).(string); ok {
		return v
	}
	return ""
}

// ErrNoAccessToken is returned for Customer Account calls made without a
// session.
var ErrNoAccessToken = apperrors.Unauthorized("No access token available. User must be authenticated.")

// CustomerAccount is the authenticated customer API.
type CustomerAccount struct {
	gql *graphql.Client
}

// NewCustomerAccount creates a Customer Account API client.
func NewCustomerAccount(cfg CustomerAccountConfig, doer httpclient.Doer) *CustomerAccount {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultCustomerAccountURL
	}
	return &CustomerAccount{
		gql: graphql.NewClient(graphql.Config{
			API:      "customer",
			Name:     "Customer API",
			Endpoint: graphql.StaticEndpoint(endpoint),
			Authorize: func(ctx context.Context, h http.Header) error {
				token := accessTokenFromContext(ctx)
				if token == "" {
					return ErrNoAccessToken
				}
				if cfg.APIVersion == "" {
					return notConfigured("SHOPIFY_CUSTOMER_ACCOUNT_API_VERSION")
				}
				h.Set("X-Shopify-Customer-Access-Token", token)
				h.Set("X-Shopify-Api-Version", cfg.APIVersion)
				return nil
			},
		}, doer),
	}
}

// GraphQL exposes the underlying client for the relay endpoint.
func (c *CustomerAccount) GraphQL() *graphql.Client {
	return c.gql
}

// Customer returns the signed-in customer.
func (c *CustomerAccount) Customer(ctx context.Context) (*domain.Customer, error) {
	var out struct {
		Customer *wireCustomer `json:"customer"`
	}
	if err := c.gql.Decode(ctx, graphql.Request{Query: queryCustomer, OperationName: "GetCustomer"}, &out); err != nil {
		return nil, err
	}
	if out.Customer == nil {
		return nil, apperrors.NotFound("customer", "current")
	}
	return out.Customer.toDomain(), nil
}

// Addresses lists the customer's addresses.
func (c *CustomerAccount) Addresses(ctx context.Context) ([]domain.Address, error) {
	var out struct {
		Customer *struct {
			Addresses connection[wireAddress] `json:"addresses"`
		} `json:"customer"`
	}
	if err := c.gql.Decode(ctx, graphql.Request{Query: queryCustomerAddresses, OperationName: "GetCustomerAddresses"}, &out); err != nil {
		return nil, err
	}
	if out.Customer == nil {
		return []domain.Address{}, nil
	}
	return mapSlice(out.Customer.Addresses.nodes(), wireAddress.toDomain), nil
}

// Orders returns one page of the order history.
func (c *CustomerAccount) Orders(ctx context.Context, first int, after string) (pagination.Page[domain.Order], error) {
	if first <= 0 {
		first = DefaultOrdersFirst
	}
	vars := map[string]any{"first": first}
	if after != "" {
		vars["after"] = after
	}
	var out struct {
		Customer *struct {
			Orders connection[wireOrder] `json:"orders"`
		} `json:"customer"`
	}
	if err := c.gql.Decode(ctx, graphql.Request{Query: queryCustomerOrders, Variables: vars, OperationName: "GetCustomerOrders"}, &out); err != nil {
		return pagination.Page[domain.Order]{}, err
	}
	if out.Customer == nil {
		return pagination.NewPage([]domain.Order{}, pagination.PageInfo{}), nil
	}
	return mapPage(out.Customer.Orders, wireOrder.toDomain), nil
}

// Order returns one order of the customer.
func (c *CustomerAccount) Order(ctx context.Context, id string) (*domain.Order, error) {
	var out struct {
		Customer *struct {
			Order *wireOrder `json:"order"`
		} `json:"customer"`
	}
	req := graphql.Request{Query: queryCustomerOrder, Variables: map[string]any{"orderId": id}, OperationName: "GetCustomerOrder"}
	if err := c.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Customer == nil || out.Customer.Order == nil {
		return nil, apperrors.NotFound("order", id)
	}
	o := out.Customer.Order.toDomain()
	return &o, nil
}

// UpdateCustomer changes the customer's name.
func (c *CustomerAccount) UpdateCustomer(ctx context.Context, in domain.CustomerUpdate) (*domain.Customer, error) {
	input := map[string]any{}
	if in.FirstName != "" {
		input["firstName"] = in.FirstName
	}
	if in.LastName != "" {
		input["lastName"] = in.LastName
	}
	var out struct {
		Payload *struct {
			Customer   *wireCustomer `json:"customer"`
			UserErrors []UserError   `json:"userErrors"`
		} `json:"customerUpdate"`
	}
	req := graphql.Request{Query: mutationCustomerUpdate, Variables: map[string]any{"input": input}, OperationName: "UpdateCustomer"}
	if err := c.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Payload == nil {
		return nil, apperrors.BadGateway("customerUpdate returned no payload", nil)
	}
	if err := firstUserError("customerUpdate", out.Payload.UserErrors); err != nil {
		return nil, err
	}
	return out.Payload.Customer.toDomain(), nil
}

type addressPayload struct {
	CustomerAddress *wireAddress `json:"customerAddress"`
	UserErrors      []UserError  `json:"userErrors"`
}

func (p *addressPayload) result(op string) (*domain.Address, error) {
	if p == nil {
		return nil, apperrors.BadGateway(op+" returned no payload", nil)
	}
	if err := firstUserError(op, p.UserErrors); err != nil {
		return nil, err
	}
	return addressPtr(p.CustomerAddress), nil
}

// CreateAddress adds an address to the customer.
func (c *CustomerAccount) CreateAddress(ctx context.Context, in domain.AddressInput) (*domain.Address, error) {
	var out struct {
		Payload *addressPayload `json:"customerAddressCreate"`
	}
	req := graphql.Request{Query: mutationAddressCreate, Variables: map[string]any{"address": addressInput(in)}, OperationName: "CreateAddress"}
	if err := c.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Payload.result("customerAddressCreate")
}

// UpdateAddress replaces an address.
func (c *CustomerAccount) UpdateAddress(ctx context.Context, id string, in domain.AddressInput) (*domain.Address, error) {
	var out struct {
		Payload *addressPayload `json:"customerAddressUpdate"`
	}
	req := graphql.Request{
		Query:         mutationAddressUpdate,
		Variables:     map[string]any{"id": id, "address": addressInput(in)},
		OperationName: "UpdateAddress",
	}
	if err := c.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Payload.result("customerAddressUpdate")
}

// DeleteAddress removes an address and returns the deleted id.
func (c *CustomerAccount) DeleteAddress(ctx context.Context, id string) (string, error) {
	var out struct {
		Payload *struct {
			DeletedCustomerAddressID string      `json:"deletedCustomerAddressId"`
			UserErrors               []UserError `json:"userErrors"`
		} `json:"customerAddressDelete"`
	}
	req := graphql.Request{Query: mutationAddressDelete, Variables: map[string]any{"id": id}, OperationName: "DeleteAddress"}
	if err := c.gql.Decode(ctx, req, &out); err != nil {
		return "", err
	}
	if out.Payload == nil {
		return "", apperrors.BadGateway("customerAddressDelete returned no payload", nil)
	}
	if err := firstUserError("customerAddressDelete", out.Payload.UserErrors); err != nil {
		return "", err
	}
	return out.Payload.DeletedCustomerAddressID, nil
}

// SetDefaultAddress makes an address the default shipping address.
func (c *CustomerAccount) SetDefaultAddress(ctx context.Context, id string) error {
	var out struct {
		Payload *struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"customerDefaultAddressUpdate"`
	}
	req := graphql.Request{Query: mutationDefaultAddressUpdate, Variables: map[string]any{"addressId": id}, OperationName: "SetDefaultAddress"}
	if err := c.gql.Decode(ctx, req, &out); err != nil {
		return err
	}
	if out.Payload == nil {
		return nil
	}
	return firstUserError("customerDefaultAddressUpdate", out.Payload.UserErrors)
}

// firstUserError reports only the first entry; the account UI shows one
// message per form.
func firstUserError(op string, errs []UserError) error {
	if len(errs) == 0 {
		return nil
	}
	return userErrors(op, errs[:1])
}
