package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/internal/service"
	"github.com/utafrali/calm-headless/internal/shopify"
	"github.com/utafrali/calm-headless/pkg/httputil"
	"github.com/utafrali/calm-headless/pkg/validator"
)

// AccountHandler serves the classic customer endpoints and the signed-in
// customer's orders, addresses and profile.
type AccountHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// LoginRequest is the JSON body of POST /api/account/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RecoverRequest is the JSON body of POST /api/account/recover.
type RecoverRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest is the JSON body of POST /api/account/reset.
type ResetRequest struct {
	CustomerID string `json:"customer_id" validate:"required,gid"`
	ResetToken string `json:"reset_token" validate:"required"`
	Password   string `json:"password" validate:"required,min=5,max=40"`
}

// RenewRequest is the JSON body of POST /api/account/renew.
type RenewRequest struct {
	AccessToken string `json:"access_token"`
}

// --- Classic customer ---

// Login handles POST /api/account/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, token)
}

// Register handles POST /api/account/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreate
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	customer, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, customer)
}

// Recover handles POST /api/account/recover
func (h *AccountHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req RecoverRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	msg, err := h.service.Recover(r.Context(), req.Email)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"message": msg})
}

// Reset handles POST /api/account/reset
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	token, err := h.service.Reset(r.Context(), req.CustomerID, req.ResetToken, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, token)
}

// Renew handles POST /api/account/renew
func (h *AccountHandler) Renew(w http.ResponseWriter, r *http.Request) {
	var req RenewRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	token, err := h.service.Renew(r.Context(), req.AccessToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, token)
}

// --- Signed-in customer (behind RequireSession) ---

// ListOrders handles GET /api/account/orders
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r, shopify.DefaultOrdersFirst)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.Orders(r.Context(), p.First, p.After)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// GetOrder handles GET /api/account/orders/{id}
func (h *AccountHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	order, err := h.service.Order(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, order)
}

// ListAddresses handles GET /api/account/addresses
func (h *AccountHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.service.Addresses(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if addrs == nil {
		addrs = []domain.Address{}
	}
	httputil.WriteData(w, http.StatusOK, addrs)
}

// CreateAddress handles POST /api/account/addresses
func (h *AccountHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req domain.AddressInput
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	addr, err := h.service.CreateAddress(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, addr)
}

// UpdateAddress handles PUT /api/account/addresses/{id}
func (h *AccountHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	var req domain.AddressInput
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	addr, err := h.service.UpdateAddress(r.Context(), id, req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, addr)
}

// DeleteAddress handles DELETE /api/account/addresses/{id}
func (h *AccountHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	deleted, err := h.service.DeleteAddress(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"deleted_address_id": deleted})
}

// SetDefaultAddress handles PUT /api/account/addresses/{id}/default
func (h *AccountHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathParam(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.SetDefaultAddress(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"default_address_id": id})
}

// UpdateProfile handles PUT /api/account/profile
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerUpdate
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	customer, err := h.service.UpdateProfile(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, customer)
}
