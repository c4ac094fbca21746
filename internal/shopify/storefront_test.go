package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/graphql"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httpclient"
)

type gqlCall struct {
	Header    http.Header
	Query     string
	Variables map[string]any
	Operation string
}

// fakeAPI answers every GraphQL POST with the body returned by respond and
// records the decoded requests.
func fakeAPI(t *testing.T, respond func(call gqlCall) string) (*httptest.Server, *[]gqlCall) {
	t.Helper()
	var calls []gqlCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query         string         `json:"query"`
			Variables     map[string]any `json:"variables"`
			OperationName string         `json:"operationName"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		call := gqlCall{Header: r.Header.Clone(), Query: body.Query, Variables: body.Variables, Operation: body.OperationName}
		calls = append(calls, call)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(call)))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testDoer() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
}

func retryingDoer() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      3,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
}

func newTestStorefront(t *testing.T, respond func(call gqlCall) string) (*Storefront, *[]gqlCall) {
	t.Helper()
	srv, calls := fakeAPI(t, respond)
	sf := NewStorefront(StorefrontConfig{Endpoint: srv.URL, PublicToken: "public-token"}, testDoer())
	return sf, calls
}

const cartJSON = `{
  "id": "gid://shopify/Cart/c1?key=abc",
  "checkoutUrl": "https://shop.example/checkouts/c1",
  "cost": {
    "subtotalAmount": {"amount": "30.0", "currencyCode": "EUR"},
    "totalAmount": {"amount": "30.0", "currencyCode": "EUR"},
    "totalTaxAmount": null
  },
  "lines": {"edges": [
    {"node": {"id": "gid://shopify/CartLine/l1", "quantity": 3, "merchandise": {
      "id": "gid://shopify/ProductVariant/v1", "title": "Large", "price": {"amount": "10.0", "currencyCode": "EUR"},
      "product": {"title": "Mug", "handle": "mug", "images": {"edges": [{"node": {"url": "https://cdn.example/mug.png", "altText": "mug"}}]}}
    }}}
  ]}
}`

func TestStorefrontConfig_URL(t *testing.T) {
	_, err := StorefrontConfig{}.URL()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Contains(t, err.Error(), "SHOPIFY_STORE_DOMAIN")

	u, err := StorefrontConfig{Domain: "calm.myshopify.com", APIVersion: "2025-04"}.URL()
	require.NoError(t, err)
	assert.Equal(t, "https://calm.myshopify.com/api/2025-04/graphql.json", u)

	u, err = StorefrontConfig{Domain: "ignored", Endpoint: "http://local/graphql"}.URL()
	require.NoError(t, err)
	assert.Equal(t, "http://local/graphql", u)
}

func TestStorefront_Headers(t *testing.T) {
	t.Run("public token", func(t *testing.T) {
		sf, calls := newTestStorefront(t, func(gqlCall) string { return `{"data":{"cart":null}}` })
		_, _ = sf.Cart(context.Background(), "gid://shopify/Cart/x")
		require.Len(t, *calls, 1)
		assert.Equal(t, "public-token", (*calls)[0].Header.Get("X-Shopify-Storefront-Access-Token"))
		assert.Empty(t, (*calls)[0].Header.Get("Shopify-Storefront-Private-Token"))
	})

	t.Run("private token wins", func(t *testing.T) {
		srv, calls := fakeAPI(t, func(gqlCall) string { return `{"data":{"cart":null}}` })
		sf := NewStorefront(StorefrontConfig{Endpoint: srv.URL, PublicToken: "pub", PrivateToken: "priv"}, testDoer())
		_, _ = sf.Cart(context.Background(), "gid://shopify/Cart/x")
		require.Len(t, *calls, 1)
		assert.Equal(t, "priv", (*calls)[0].Header.Get("Shopify-Storefront-Private-Token"))
		assert.Empty(t, (*calls)[0].Header.Get("X-Shopify-Storefront-Access-Token"))
	})

	t.Run("no token", func(t *testing.T) {
		srv, calls := fakeAPI(t, func(gqlCall) string { return `{}` })
		sf := NewStorefront(StorefrontConfig{Endpoint: srv.URL}, testDoer())
		_, err := sf.Cart(context.Background(), "gid://shopify/Cart/x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotConfigured))
		assert.Empty(t, *calls)
	})
}

func TestStorefront_Cart(t *testing.T) {
	sf, calls := newTestStorefront(t, func(gqlCall) string { return `{"data":{"cart":` + cartJSON + `}}` })

	cart, err := sf.Cart(context.Background(), "gid://shopify/Cart/c1?key=abc")
	require.NoError(t, err)

	assert.Equal(t, "gid://shopify/Cart/c1?key=abc", cart.ID)
	assert.Equal(t, 3, cart.ItemCount())
	require.Len(t, cart.Lines, 1)
	line := cart.Lines[0]
	assert.Equal(t, "gid://shopify/ProductVariant/v1", line.Merchandise.ID)
	assert.Equal(t, "Mug", line.Merchandise.ProductTitle)
	require.NotNil(t, line.Merchandise.Image)
	assert.Equal(t, "https://cdn.example/mug.png", line.Merchandise.Image.URL)
	assert.Nil(t, cart.Cost.Tax)
	assert.Equal(t, domain.Money{Amount: "30.0", CurrencyCode: "EUR"}, cart.Cost.Total)

	require.Len(t, *calls, 1)
	assert.Equal(t, "GetCart", (*calls)[0].Operation)
	assert.Equal(t, "gid://shopify/Cart/c1?key=abc", (*calls)[0].Variables["cartId"])
}

func TestStorefront_Cart_NullIsNotFound(t *testing.T) {
	sf, _ := newTestStorefront(t, func(gqlCall) string { return `{"data":{"cart":null}}` })

	_, err := sf.Cart(context.Background(), "gid://shopify/Cart/gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStorefront_CartCreate(t *testing.T) {
	sf, calls := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"cartCreate":{"cart":` + cartJSON + `,"userErrors":[]}}}`
	})

	cart, err := sf.CartCreate(context.Background(), []domain.LineInput{{MerchandiseID: "gid://shopify/ProductVariant/v1", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Cart/c1?key=abc", cart.ID)

	require.Len(t, *calls, 1)
	input := (*calls)[0].Variables["input"].(map[string]any)
	lines := input["lines"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "gid://shopify/ProductVariant/v1", lines[0].(map[string]any)["merchandiseId"])
	assert.Equal(t, float64(3), lines[0].(map[string]any)["quantity"])
	assert.True(t, graphql.IsMutation((*calls)[0].Query))
}

func TestStorefront_CartCreate_NoLines(t *testing.T) {
	sf, calls := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"cartCreate":{"cart":` + cartJSON + `,"userErrors":[]}}}`
	})

	_, err := sf.CartCreate(context.Background(), nil)
	require.NoError(t, err)
	input := (*calls)[0].Variables["input"].(map[string]any)
	assert.NotContains(t, input, "lines")
}

func TestStorefront_CartLinesAdd_UserErrors(t *testing.T) {
	sf, _ := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"cartLinesAdd":{"cart":null,"userErrors":[
			{"code":"INVALID","field":["lines","0","quantity"],"message":"Quantity is too high"},
			{"field":["lines"],"message":"Variant is sold out"}]}}}`
	})

	_, err := sf.CartLinesAdd(context.Background(), "gid://shopify/Cart/c1", []domain.LineInput{{MerchandiseID: "gid://shopify/ProductVariant/v1", Quantity: 99}})
	require.Error(t, err)

	var ue *UserErrors
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "cartLinesAdd", ue.Op)
	assert.Equal(t, "Quantity is too high, Variant is sold out", err.Error())
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
}

func TestStorefront_CartLinesAdd_ExpiredCartIsNotFound(t *testing.T) {
	sf, _ := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"cartLinesAdd":{"cart":null,"userErrors":[
			{"code":"INVALID","field":["cartId"],"message":"The specified cart does not exist."}]}}}`
	})

	_, err := sf.CartLinesAdd(context.Background(), "gid://shopify/Cart/gone", []domain.LineInput{{MerchandiseID: "gid://shopify/ProductVariant/v1", Quantity: 1}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	var ue *UserErrors
	assert.False(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

func TestStorefront_CartLinesMutations(t *testing.T) {
	sf, calls := newTestStorefront(t, func(call gqlCall) string {
		switch call.Operation {
		case "cartLinesUpdate":
			return `{"data":{"cartLinesUpdate":{"cart":` + cartJSON + `,"userErrors":[]}}}`
		case "cartLinesRemove":
			return `{"data":{"cartLinesRemove":{"cart":null,"userErrors":[]}}}`
		}
		return `{"data":null}`
	})

	cart, err := sf.CartLinesUpdate(context.Background(), "gid://shopify/Cart/c1", []domain.LineUpdate{{ID: "gid://shopify/CartLine/l1", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.ItemCount())
	update := (*calls)[0].Variables["lines"].([]any)[0].(map[string]any)
	assert.Equal(t, "gid://shopify/CartLine/l1", update["id"])

	// A null cart without user errors means the id is unknown.
	_, err = sf.CartLinesRemove(context.Background(), "gid://shopify/Cart/c1", []string{"gid://shopify/CartLine/l1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, []any{"gid://shopify/CartLine/l1"}, (*calls)[1].Variables["lineIds"])
}

func TestStorefront_ApplicationErrorIsBadGateway(t *testing.T) {
	sf, _ := newTestStorefront(t, func(gqlCall) string {
		return `{"errors":[{"message":"Throttled"}]}`
	})

	_, err := sf.Products(context.Background(), 0, "")
	require.Error(t, err)
	var ae *graphql.ApplicationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
}

const productJSON = `{
  "id": "gid://shopify/Product/p1",
  "title": "Mug",
  "handle": "mug",
  "description": "A mug",
  "descriptionHtml": "<p>A mug</p>",
  "availableForSale": true,
  "priceRange": {
    "minVariantPrice": {"amount": "10.0", "currencyCode": "EUR"},
    "maxVariantPrice": {"amount": "12.0", "currencyCode": "EUR"}
  },
  "images": {"edges": [{"node": {"id": "i1", "url": "https://cdn.example/mug.png", "altText": null, "width": 800, "height": 600}}]},
  "variants": {"edges": [{"node": {
    "id": "gid://shopify/ProductVariant/v1", "title": "Large", "availableForSale": true,
    "price": {"amount": "12.0", "currencyCode": "EUR"}, "compareAtPrice": null,
    "selectedOptions": [{"name": "Size", "value": "L"}]
  }}]}
}`

func TestStorefront_Products(t *testing.T) {
	sf, calls := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"products":{
			"pageInfo":{"hasNextPage":true,"hasPreviousPage":false,"startCursor":"a","endCursor":"b"},
			"edges":[{"node":` + productJSON + `}]}}}`
	})

	page, err := sf.Products(context.Background(), 0, "cursor-1")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	p := page.Items[0]
	assert.Equal(t, "mug", p.Handle)
	assert.Equal(t, "12.0", p.PriceRange.Max.Amount)
	require.Len(t, p.Variants, 1)
	assert.Equal(t, []domain.SelectedOption{{Name: "Size", Value: "L"}}, p.Variants[0].SelectedOptions)
	assert.Nil(t, p.Variants[0].CompareAtPrice)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.Equal(t, "b", page.PageInfo.EndCursor)

	assert.Equal(t, float64(DefaultProductsFirst), (*calls)[0].Variables["first"])
	assert.Equal(t, "cursor-1", (*calls)[0].Variables["after"])
}

func TestStorefront_ProductByHandle(t *testing.T) {
	sf, _ := newTestStorefront(t, func(call gqlCall) string {
		if call.Variables["handle"] == "mug" {
			return `{"data":{"product":` + productJSON + `}}`
		}
		return `{"data":{"product":null}}`
	})

	p, err := sf.ProductByHandle(context.Background(), "mug")
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Product/p1", p.ID)

	_, err = sf.ProductByHandle(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStorefront_Collections(t *testing.T) {
	sf, calls := newTestStorefront(t, func(call gqlCall) string {
		if call.Operation == "GetCollections" {
			return `{"data":{"collections":{"edges":[{"node":{"id":"c1","title":"Kitchen","handle":"kitchen","description":"","image":null}}]}}}`
		}
		return `{"data":{"collection":{"id":"c1","title":"Kitchen","handle":"kitchen","description":"","image":null,
			"products":{"pageInfo":{"hasNextPage":false,"hasPreviousPage":false},"edges":[{"node":` + productJSON + `}]}}}}`
	})

	list, err := sf.Collections(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Products)
	assert.Equal(t, float64(DefaultCollectionsFirst), (*calls)[0].Variables["first"])

	c, err := sf.CollectionByHandle(context.Background(), "kitchen", 5, "")
	require.NoError(t, err)
	require.NotNil(t, c.Products)
	assert.Len(t, c.Products.Items, 1)
	assert.NotContains(t, (*calls)[1].Variables, "after")
}

func TestStorefront_SearchProducts(t *testing.T) {
	sf, calls := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"products":{"edges":[{"node":` + productJSON + `}]}}}`
	})

	res, err := sf.SearchProducts(context.Background(), "mug", 0)
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, "mug", (*calls)[0].Variables["query"])
	assert.Equal(t, float64(DefaultSearchFirst), (*calls)[0].Variables["first"])
}

func TestStorefront_CustomerAccessTokenCreate(t *testing.T) {
	sf, calls := newTestStorefront(t, func(call gqlCall) string {
		input := call.Variables["input"].(map[string]any)
		if input["password"] == "right" {
			return `{"data":{"customerAccessTokenCreate":{"customerAccessToken":{"accessToken":"tok","expiresAt":"2026-11-17T10:00:00Z"},"customerUserErrors":[]}}}`
		}
		return `{"data":{"customerAccessTokenCreate":{"customerAccessToken":null,"customerUserErrors":[{"code":"UNIDENTIFIED_CUSTOMER","field":["input"],"message":"Unidentified customer"}]}}}`
	})

	tok, err := sf.CustomerAccessTokenCreate(context.Background(), "a@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, 2026, tok.ExpiresAt.Year())

	_, err = sf.CustomerAccessTokenCreate(context.Background(), "a@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Unidentified customer", err.Error())
	assert.Len(t, *calls, 2)
}

func TestStorefront_CustomerRecoverAndReset(t *testing.T) {
	sf, calls := newTestStorefront(t, func(call gqlCall) string {
		if call.Operation == "customerRecover" {
			return `{"data":{"customerRecover":{"customerUserErrors":[]}}}`
		}
		return `{"data":{"customerReset":{"customer":{"id":"gid://shopify/Customer/1"},"customerAccessToken":{"accessToken":"new","expiresAt":"2026-11-17T10:00:00Z"},"customerUserErrors":[]}}}`
	})

	require.NoError(t, sf.CustomerRecover(context.Background(), "a@example.com"))

	tok, err := sf.CustomerReset(context.Background(), "gid://shopify/Customer/1", "reset-token", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "new", tok.AccessToken)
	input := (*calls)[1].Variables["input"].(map[string]any)
	assert.Equal(t, "reset-token", input["resetToken"])
}

func TestStorefront_CustomerCreate(t *testing.T) {
	sf, calls := newTestStorefront(t, func(gqlCall) string {
		return `{"data":{"customerCreate":{"customer":{"id":"gid://shopify/Customer/1","email":"a@example.com","firstName":"Ada","lastName":""},"customerUserErrors":[]}}}`
	})

	c, err := sf.CustomerCreate(context.Background(), domain.CustomerCreate{Email: "a@example.com", Password: "secret", FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", c.Email)

	input := (*calls)[0].Variables["input"].(map[string]any)
	assert.Equal(t, "Ada", input["firstName"])
	assert.NotContains(t, input, "lastName")
}
