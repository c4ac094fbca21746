package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/session"
	"github.com/utafrali/calm-headless/pkg/httputil"
	"github.com/utafrali/calm-headless/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service  *service.CartService
	sessions *session.Manager
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, sessions *session.Manager, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service:  svc,
		sessions: sessions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// AddLinesRequest is the JSON body of POST /api/cart/{id} and POST /api/cart/create.
type AddLinesRequest struct {
	Lines []domain.LineInput `json:"lines" validate:"omitempty,max=250,dive"`
}

// UpdateLinesRequest is the JSON body of PUT /api/cart/{id}.
type UpdateLinesRequest struct {
	Lines []domain.LineUpdate `json:"lines" validate:"required,min=1,max=250,dive"`
}

// RemoveLinesRequest is the JSON body of DELETE /api/cart/{id}.
type RemoveLinesRequest struct {
	LineIDs []string `json:"line_ids" validate:"required,min=1,max=250,dive,gid"`
}

// AddItemRequest is the JSON body of POST /api/cart/items.
type AddItemRequest struct {
	VariantID string `json:"variant_id" validate:"required,gid"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
}

// UpdateItemRequest is the JSON body of PATCH /api/cart/lines/{lineId}.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=1,lte=999"`
}

// DrawerRequest is the JSON body of PUT /api/cart/drawer.
type DrawerRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// --- Session cart ---

// GetCart handles GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.FetchCart(r.Context(), h.sessions.Jar(w, r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.AddToCart(r.Context(), h.sessions.Jar(w, r), req.VariantID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// UpdateItem handles PATCH /api/cart/lines/{lineId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	lineID, err := httputil.PathParam(r, "lineId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	var req UpdateItemRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.UpdateCartItem(r.Context(), h.sessions.Jar(w, r), lineID, req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/cart/lines/{lineId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	lineID, err := httputil.PathParam(r, "lineId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	view, err := h.service.RemoveFromCart(r.Context(), h.sessions.Jar(w, r), lineID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// ClearCart handles DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearCart(r.Context(), h.sessions.Jar(w, r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// CreateCart handles POST /api/cart/create
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req AddLinesRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.CreateCart(r.Context(), h.sessions.Jar(w, r), req.Lines)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, view)
}

// SetDrawer handles PUT /api/cart/drawer
func (h *CartHandler) SetDrawer(w http.ResponseWriter, r *http.Request) {
	var req DrawerRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.service.SetOpen(r.Context(), h.sessions.Jar(w, r), *req.Open)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// ToggleDrawer handles POST /api/cart/drawer/toggle
func (h *CartHandler) ToggleDrawer(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ToggleOpen(r.Context(), h.sessions.Jar(w, r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, view)
}

// --- Raw cart by id ---

// GetCartByID handles GET /api/cart/{id}
func (h *CartHandler) GetCartByID(w http.ResponseWriter, r *http.Request) {
	cartID, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.Get(r.Context(), cartID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// AddLines handles POST /api/cart/{id}
func (h *CartHandler) AddLines(w http.ResponseWriter, r *http.Request) {
	cartID, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	var req AddLinesRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.AddLines(r.Context(), cartID, req.Lines)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// UpdateLines handles PUT /api/cart/{id}
func (h *CartHandler) UpdateLines(w http.ResponseWriter, r *http.Request) {
	cartID, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	var req UpdateLinesRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.UpdateLines(r.Context(), cartID, req.Lines)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// RemoveLines handles DELETE /api/cart/{id}
func (h *CartHandler) RemoveLines(w http.ResponseWriter, r *http.Request) {
	cartID, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	var req RemoveLinesRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.RemoveLines(r.Context(), cartID, req.LineIDs)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}
