package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/pkg/httputil"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// AdminHandler exposes the Admin API diagnostics and listings.
type AdminHandler struct {
	service *service.AdminService
	env     *service.EnvService
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(svc *service.AdminService, env *service.EnvService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: svc, env: env, logger: logger}
}

// Status handles GET /api/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.Status(r.Context()))
}

// ListProducts handles GET /api/admin/products
func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, pagination.DefaultFirst)
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

// ListOrders handles GET /api/admin/orders?query=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, pagination.DefaultFirst)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.Orders(r.Context(), p.First, p.After, r.URL.Query().Get("query"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// TestEnv handles GET /api/test-env
func (h *AdminHandler) TestEnv(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.env.Report())
}
