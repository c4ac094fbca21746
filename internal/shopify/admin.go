package shopify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/graphql"
	"github.com/utafrali/calm-headless/pkg/httpclient"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

const queryShop = `
query GetShopInfo {
  shop {
    name
    email
    myshopifyDomain
    currencyCode
    primaryDomain { url }
    plan { displayName }
  }
}
`

const queryAdminProducts = `
query GetProducts($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    ` + pageInfoFields + `
    edges {
      node { id title handle status vendor productType totalInventory updatedAt }
    }
  }
}
`

const queryAdminOrders = `
query GetOrders($first: Int!, $after: String, $query: String) {
  orders(first: $first, after: $after, query: $query) {
    ` + pageInfoFields + `
    edges {
      node {
        id
        name
        createdAt
        email
        displayFinancialStatus
        displayFulfillmentStatus
        totalPriceSet { shopMoney { amount currencyCode } }
      }
    }
  }
}
`

// AdminConfig holds the Admin API credentials.
type AdminConfig struct {
	Domain      string
	AccessToken string
	APIVersion  string
	// Endpoint overrides the URL derived from Domain.
	Endpoint string
}

// URL returns the Admin GraphQL endpoint, or a configuration error.
func (c AdminConfig) URL() (string, error) {
	if c.Endpoint != "" {
		return c.Endpoint, nil
	}
	if c.Domain == "" {
		return "", notConfigured("SHOPIFY_STORE_DOMAIN")
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.Domain, c.APIVersion), nil
}

// Admin is the store administration API.
type Admin struct {
	gql *graphql.Client
}

// NewAdmin creates an Admin API client.
func NewAdmin(cfg AdminConfig, doer httpclient.Doer) *Admin {
	return &Admin{
		gql: graphql.NewClient(graphql.Config{
			API:      "admin",
			Name:     "Shopify Admin API",
			Endpoint: cfg.URL,
			Authorize: func(_ context.Context, h http.Header) error {
				if cfg.AccessToken == "" {
					return notConfigured("SHOPIFY_ADMIN_API_ACCESS_TOKEN")
				}
				h.Set("X-Shopify-Access-Token", cfg.AccessToken)
				return nil
			},
		}, doer),
	}
}

// GraphQL exposes the underlying client for the relay endpoint.
func (a *Admin) GraphQL() *graphql.Client {
	return a.gql
}

// Shop returns the store profile.
func (a *Admin) Shop(ctx context.Context) (*domain.Shop, error) {
	var out struct {
		Shop wireShop `json:"shop"`
	}
	if err := a.gql.Decode(ctx, graphql.Request{Query: queryShop, OperationName: "GetShopInfo"}, &out); err != nil {
		return nil, err
	}
	return out.Shop.toDomain(), nil
}

// CheckAccess reports whether the Admin API answers with the configured
// credentials. It never returns an error.
func (a *Admin) CheckAccess(ctx context.Context) bool {
	_, err := a.Shop(ctx)
	return err == nil
}

// Products returns one page of products with their admin fields.
func (a *Admin) Products(ctx context.Context, first int, after string) (pagination.Page[domain.AdminProduct], error) {
	if first <= 0 {
		first = pagination.DefaultFirst
	}
	vars := map[string]any{"first": first}
	if after != "" {
		vars["after"] = after
	}
	var out struct {
		Products connection[wireAdminProduct] `json:"products"`
	}
	if err := a.gql.Decode(ctx, graphql.Request{Query: queryAdminProducts, Variables: vars, OperationName: "GetProducts"}, &out); err != nil {
		return pagination.Page[domain.AdminProduct]{}, err
	}
	return mapPage(out.Products, wireAdminProduct.toDomain), nil
}

// Orders returns one page of orders, optionally filtered by a search query.
func (a *Admin) Orders(ctx context.Context, first int, after, query string) (pagination.Page[domain.AdminOrder], error) {
	if first <= 0 {
		first = pagination.DefaultFirst
	}
	vars := map[string]any{"first": first}
	if after != "" {
		vars["after"] = after
	}
	if query != "" {
		vars["query"] = query
	}
	var out struct {
		Orders connection[wireAdminOrder] `json:"orders"`
	}
	if err := a.gql.Decode(ctx, graphql.Request{Query: queryAdminOrders, Variables: vars, OperationName: "GetOrders"}, &out); err != nil {
		return pagination.Page[domain.AdminOrder]{}, err
	}
	return mapPage(out.Orders, wireAdminOrder.toDomain), nil
}
