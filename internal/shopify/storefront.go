package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/graphql"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httpclient"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// Default page sizes of the catalog queries.
const (
	DefaultProductsFirst    = 12
	DefaultCollectionsFirst = 20
	DefaultSearchFirst      = 24
)

// StorefrontConfig holds the Storefront API credentials.
type StorefrontConfig struct {
	Domain       string
	PublicToken  string
	PrivateToken string
	APIVersion   string
	// Endpoint overrides the URL derived from Domain.
	Endpoint string
}

// URL returns the GraphQL endpoint, or a configuration error.
func (c StorefrontConfig) URL() (string, error) {
	if c.Endpoint != "" {
		return c.Endpoint, nil
	}
	if c.Domain == "" {
		return "", notConfigured("SHOPIFY_STORE_DOMAIN")
	}
	return fmt.Sprintf("https://%s/api/%s/graphql.json", c.Domain, c.APIVersion), nil
}

// Storefront is the public catalog, cart and classic customer API.
type Storefront struct {
	gql *graphql.Client
}

// NewStorefront creates a Storefront API client. Missing credentials are
// reported per call, never at construction.
func NewStorefront(cfg StorefrontConfig, doer httpclient.Doer) *Storefront {
	return &Storefront{
		gql: graphql.NewClient(graphql.Config{
			API:      "storefront",
			Name:     "Storefront API",
			Endpoint: cfg.URL,
			Authorize: func(_ context.Context, h http.Header) error {
				switch {
				case cfg.PrivateToken != "":
					h.Set("Shopify-Storefront-Private-Token", cfg.PrivateToken)
				case cfg.PublicToken != "":
					h.Set("X-Shopify-Storefront-Access-Token", cfg.PublicToken)
				default:
					return notConfigured("SHOPIFY_STOREFRONT_PUBLIC_TOKEN")
				}
				return nil
			},
		}, doer),
	}
}

// GraphQL exposes the underlying client for the relay endpoint.
func (s *Storefront) GraphQL() *graphql.Client {
	return s.gql
}

// --- Catalog ---

// Products returns one page of products.
func (s *Storefront) Products(ctx context.Context, first int, after string) (pagination.Page[domain.Product], error) {
	if first <= 0 {
		first = DefaultProductsFirst
	}
	vars := map[string]any{"first": first}
	if after != "" {
		vars["after"] = after
	}

	var out struct {
		Products connection[wireProduct] `json:"products"`
	}
	if err := s.gql.Decode(ctx, graphql.Request{Query: queryProducts, Variables: vars, OperationName: "GetProducts"}, &out); err != nil {
		return pagination.Page[domain.Product]{}, err
	}
	return mapPage(out.Products, wireProduct.toDomain), nil
}

// ProductByHandle returns the product or a not-found error.
func (s *Storefront) ProductByHandle(ctx context.Context, handle string) (*domain.Product, error) {
	var out struct {
		Product *wireProduct `json:"product"`
	}
	req := graphql.Request{
		Query:         queryProductByHandle,
		Variables:     map[string]any{"handle": handle},
		OperationName: "GetProductByHandle",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, apperrors.NotFound("product", handle)
	}
	p := out.Product.toDomain()
	return &p, nil
}

// SearchProducts runs a full-text product search.
func (s *Storefront) SearchProducts(ctx context.Context, query string, first int) ([]domain.Product, error) {
	if first <= 0 {
		first = DefaultSearchFirst
	}
	var out struct {
		Products connection[wireProduct] `json:"products"`
	}
	req := graphql.Request{
		Query:         querySearchProducts,
		Variables:     map[string]any{"query": query, "first": first},
		OperationName: "SearchProducts",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return mapSlice(out.Products.nodes(), wireProduct.toDomain), nil
}

// Collections lists collections without their products.
func (s *Storefront) Collections(ctx context.Context, first int) ([]domain.Collection, error) {
	if first <= 0 {
		first = DefaultCollectionsFirst
	}
	var out struct {
		Collections connection[wireCollection] `json:"collections"`
	}
	req := graphql.Request{
		Query:         queryCollections,
		Variables:     map[string]any{"first": first},
		OperationName: "GetCollections",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return mapSlice(out.Collections.nodes(), wireCollection.toDomain), nil
}

// CollectionByHandle returns a collection with one page of its products.
func (s *Storefront) CollectionByHandle(ctx context.Context, handle string, first int, after string) (*domain.Collection, error) {
	if first <= 0 {
		first = DefaultProductsFirst
	}
	vars := map[string]any{"handle": handle, "first": first}
	if after != "" {
		vars["after"] = after
	}
	var out struct {
		Collection *wireCollection `json:"collection"`
	}
	req := graphql.Request{Query: queryCollectionByHandle, Variables: vars, OperationName: "GetCollectionByHandle"}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Collection == nil {
		return nil, apperrors.NotFound("collection", handle)
	}
	c := out.Collection.toDomain()
	return &c, nil
}

// --- Cart ---

type cartPayload struct {
	Cart       *wireCart   `json:"cart"`
	UserErrors []UserError `json:"userErrors"`
}

// result turns a cart mutation payload into a cart or an error. A payload
// without a cart that either carries no user errors or rejects the cartId
// argument means the cart id is unknown or expired.
func (p *cartPayload) result(op, cartID string) (*domain.Cart, error) {
	if p == nil {
		return nil, apperrors.BadGateway(op+" returned no payload", nil)
	}
	if p.Cart == nil && cartID != "" && rejectsCartID(p.UserErrors) {
		return nil, apperrors.NotFound("cart", cartID)
	}
	if err := userErrors(op, p.UserErrors); err != nil {
		return nil, err
	}
	if p.Cart == nil {
		if cartID == "" {
			return nil, apperrors.BadGateway(op+" returned no cart", nil)
		}
		return nil, apperrors.NotFound("cart", cartID)
	}
	return p.Cart.toDomain(), nil
}

func rejectsCartID(errs []UserError) bool {
	for _, ue := range errs {
		if len(ue.Field) > 0 && ue.Field[0] == "cartId" {
			return true
		}
	}
	return false
}

// Cart fetches a cart. A null cart, which the API returns for expired or
// completed carts, is a not-found error.
func (s *Storefront) Cart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var out struct {
		Cart *wireCart `json:"cart"`
	}
	req := graphql.Request{Query: queryCart, Variables: map[string]any{"cartId": cartID}, OperationName: "GetCart"}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Cart == nil {
		return nil, apperrors.NotFound("cart", cartID)
	}
	return out.Cart.toDomain(), nil
}

func lineInputs(lines []domain.LineInput) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		out = append(out, map[string]any{"merchandiseId": l.MerchandiseID, "quantity": l.Quantity})
	}
	return out
}

// CartCreate creates a cart, optionally with initial lines.
func (s *Storefront) CartCreate(ctx context.Context, lines []domain.LineInput) (*domain.Cart, error) {
	input := map[string]any{}
	if len(lines) > 0 {
		input["lines"] = lineInputs(lines)
	}
	var out struct {
		CartCreate *cartPayload `json:"cartCreate"`
	}
	req := graphql.Request{Query: mutationCartCreate, Variables: map[string]any{"input": input}, OperationName: "cartCreate"}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.CartCreate.result("cartCreate", "")
}

// CartLinesAdd adds lines to an existing cart.
func (s *Storefront) CartLinesAdd(ctx context.Context, cartID string, lines []domain.LineInput) (*domain.Cart, error) {
	var out struct {
		CartLinesAdd *cartPayload `json:"cartLinesAdd"`
	}
	req := graphql.Request{
		Query:         mutationCartLinesAdd,
		Variables:     map[string]any{"cartId": cartID, "lines": lineInputs(lines)},
		OperationName: "cartLinesAdd",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.CartLinesAdd.result("cartLinesAdd", cartID)
}

// CartLinesUpdate sets line quantities.
func (s *Storefront) CartLinesUpdate(ctx context.Context, cartID string, lines []domain.LineUpdate) (*domain.Cart, error) {
	updates := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		updates = append(updates, map[string]any{"id": l.ID, "quantity": l.Quantity})
	}
	var out struct {
		CartLinesUpdate *cartPayload `json:"cartLinesUpdate"`
	}
	req := graphql.Request{
		Query:         mutationCartLinesUpdate,
		Variables:     map[string]any{"cartId": cartID, "lines": updates},
		OperationName: "cartLinesUpdate",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.CartLinesUpdate.result("cartLinesUpdate", cartID)
}

// CartLinesRemove removes lines by id.
func (s *Storefront) CartLinesRemove(ctx context.Context, cartID string, lineIDs []string) (*domain.Cart, error) {
	var out struct {
		CartLinesRemove *cartPayload `json:"cartLinesRemove"`
	}
	req := graphql.Request{
		Query:         mutationCartLinesRemove,
		Variables:     map[string]any{"cartId": cartID, "lineIds": lineIDs},
		OperationName: "cartLinesRemove",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.CartLinesRemove.result("cartLinesRemove", cartID)
}

// --- Classic customer accounts ---

type tokenPayload struct {
	CustomerAccessToken *wireAccessToken `json:"customerAccessToken"`
	CustomerUserErrors  []UserError      `json:"customerUserErrors"`
	UserErrors          []UserError      `json:"userErrors"`
}

func (p *tokenPayload) result(op string) (*domain.AccessToken, error) {
	if p == nil {
		return nil, apperrors.BadGateway(op+" returned no payload", nil)
	}
	if err := userErrors(op, append(p.CustomerUserErrors, p.UserErrors...)); err != nil {
		return nil, err
	}
	if p.CustomerAccessToken == nil {
		return nil, errors.New(op + " returned no access token")
	}
	return p.CustomerAccessToken.toDomain(), nil
}

// CustomerAccessTokenCreate signs a classic customer in with email and password.
func (s *Storefront) CustomerAccessTokenCreate(ctx context.Context, email, password string) (*domain.AccessToken, error) {
	var out struct {
		Payload *tokenPayload `json:"customerAccessTokenCreate"`
	}
	req := graphql.Request{
		Query:         mutationCustomerAccessTokenCreate,
		Variables:     map[string]any{"input": map[string]any{"email": email, "password": password}},
		OperationName: "customerAccessTokenCreate",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Payload.result("customerAccessTokenCreate")
}

// CustomerAccessTokenRenew extends a classic customer token.
func (s *Storefront) CustomerAccessTokenRenew(ctx context.Context, token string) (*domain.AccessToken, error) {
	var out struct {
		Payload *tokenPayload `json:"customerAccessTokenRenew"`
	}
	req := graphql.Request{
		Query:         mutationCustomerAccessTokenRenew,
		Variables:     map[string]any{"customerAccessToken": token},
		OperationName: "customerAccessTokenRenew",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Payload.result("customerAccessTokenRenew")
}

// CustomerCreate registers a classic customer.
func (s *Storefront) CustomerCreate(ctx context.Context, in domain.CustomerCreate) (*domain.Customer, error) {
	input := map[string]any{
		"email":            in.Email,
		"password":         in.Password,
		"acceptsMarketing": in.AcceptsMarketing,
	}
	if in.FirstName != "" {
		input["firstName"] = in.FirstName
	}
	if in.LastName != "" {
		input["lastName"] = in.LastName
	}

	var out struct {
		Payload *struct {
			Customer           *wireCustomer `json:"customer"`
			CustomerUserErrors []UserError   `json:"customerUserErrors"`
		} `json:"customerCreate"`
	}
	req := graphql.Request{Query: mutationCustomerCreate, Variables: map[string]any{"input": input}, OperationName: "customerCreate"}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	if out.Payload == nil {
		return nil, apperrors.BadGateway("customerCreate returned no payload", nil)
	}
	if err := userErrors("customerCreate", out.Payload.CustomerUserErrors); err != nil {
		return nil, err
	}
	if out.Payload.Customer == nil {
		return nil, errors.New("customerCreate returned no customer")
	}
	return out.Payload.Customer.toDomain(), nil
}

// CustomerRecover sends a password reset email.
func (s *Storefront) CustomerRecover(ctx context.Context, email string) error {
	var out struct {
		Payload *struct {
			CustomerUserErrors []UserError `json:"customerUserErrors"`
		} `json:"customerRecover"`
	}
	req := graphql.Request{Query: mutationCustomerRecover, Variables: map[string]any{"email": email}, OperationName: "customerRecover"}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return err
	}
	if out.Payload == nil {
		return nil
	}
	return userErrors("customerRecover", out.Payload.CustomerUserErrors)
}

// CustomerReset sets a new password with the token from the reset email and
// signs the customer in.
func (s *Storefront) CustomerReset(ctx context.Context, customerID, resetToken, password string) (*domain.AccessToken, error) {
	var out struct {
		Payload *tokenPayload `json:"customerReset"`
	}
	req := graphql.Request{
		Query: mutationCustomerReset,
		Variables: map[string]any{
			"id":    customerID,
			"input": map[string]any{"resetToken": resetToken, "password": password},
		},
		OperationName: "customerReset",
	}
	if err := s.gql.Decode(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Payload.result("customerReset")
}
