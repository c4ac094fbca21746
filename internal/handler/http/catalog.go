package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/shopify"
	apperrors "github.com/utafrali/calm-headless/pkg/errors"
	"github.com/utafrali/calm-headless/pkg/httputil"
	"github.com/utafrali/calm-headless/pkg/slug"
)

// CatalogHandler serves products, collections and search.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

func handleParam(r *http.Request) (string, error) {
	handle, err := httputil.PathParam(r, "handle")
	if err != nil {
		return "", err
	}
	if slug.Valid(handle) {
		return handle, nil
	}
	// Links built from titles ("Calm_Sleep_Tea") resolve to the canonical handle.
	if canonical := slug.Generate(handle); canonical != "" && slug.Valid(canonical) {
		return canonical, nil
	}
	return "", apperrors.InvalidInput("invalid handle")
}

// ListProducts handles GET /api/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, shopify.DefaultProductsFirst)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.Products(r.Context(), p.First, p.After)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// GetProduct handles GET /api/products/{handle}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	handle, err := handleParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.Product(r.Context(), handle)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// ListCollections handles GET /api/collections
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	first, err := intQuery(r, "first", shopify.DefaultCollectionsFirst)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	collections, err := h.service.Collections(r.Context(), first)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, collections)
}

// GetCollection handles GET /api/collections/{handle}
func (h *CatalogHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	handle, err := handleParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	p, err := pageParams(r, shopify.DefaultProductsFirst)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	collection, err := h.service.Collection(r.Context(), handle, p.First, p.After)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, collection)
}

// Search handles GET /api/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	first, err := intQuery(r, "first", shopify.DefaultSearchFirst)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := h.service.Search(r.Context(), r.URL.Query().Get("q"), first)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}
