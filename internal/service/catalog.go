package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/calm-headless/internal/domain"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// CatalogAPI is the read-only catalog surface of the storefront.
type CatalogAPI interface {
	Products(ctx context.Context, first int, after string) (pagination.Page[domain.Product], error)
	ProductByHandle(ctx context.Context, handle string) (*domain.Product, error)
	SearchProducts(ctx context.Context, query string, first int) ([]domain.Product, error)
	Collections(ctx context.Context, first int) ([]domain.Collection, error)
	CollectionByHandle(ctx context.Context, handle string, first int, after string) (*domain.Collection, error)
}

// CatalogService serves product and collection reads.
type CatalogService struct {
	api CatalogAPI
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(api CatalogAPI) *CatalogService {
	return &CatalogService{api: api}
}

// checkFirst validates a page size. Zero leaves the default to the client.
func checkFirst(first int) error {
	if first < 0 || first > pagination.MaxFirst {
		return apperrors.InvalidInput(fmt.Sprintf("first must be between 1 and %d", pagination.MaxFirst))
	}
	return nil
}

func (s *CatalogService) Products(ctx context.Context, first int, after string) (pagination.Page[domain.Product], error) {
	if err := checkFirst(first); err != nil {
		return pagination.Page[domain.Product]{}, err
	}
	return s.api.Products(ctx, first, after)
}

func (s *CatalogService) Product(ctx context.Context, handle string) (*domain.Product, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, apperrors.InvalidInput("product handle is required")
	}
	return s.api.ProductByHandle(ctx, handle)
}

// Search runs a full-text product query. An empty query matches nothing and
// is not sent.
func (s *CatalogService) Search(ctx context.Context, query string, first int) ([]domain.Product, error) {
	if err := checkFirst(first); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Product{}, nil
	}
	return s.api.SearchProducts(ctx, query, first)
}

func (s *CatalogService) Collections(ctx context.Context, first int) ([]domain.Collection, error) {
	if err := checkFirst(first); err != nil {
		return nil, err
	}
	return s.api.Collections(ctx, first)
}

func (s *CatalogService) Collection(ctx context.Context, handle string, first int, after string) (*domain.Collection, error) {
	if err := checkFirst(first); err != nil {
		return nil, err
	}
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, apperrors.InvalidInput("collection handle is required")
	}
	return s.api.CollectionByHandle(ctx, handle, first, after)
}
