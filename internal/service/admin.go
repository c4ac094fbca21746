package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// AdminAPI is the back-office surface of the commerce platform.
type AdminAPI interface {
	Shop(ctx context.Context) (*domain.Shop, error)
	CheckAccess(ctx context.Context) bool
	Products(ctx context.Context, first int, after string) (pagination.Page[domain.AdminProduct], error)
	Orders(ctx context.Context, first int, after, query string) (pagination.Page[domain.AdminOrder], error)
}

// AdminStatus reports whether the admin API is usable.
type AdminStatus struct {
	Configured bool         `json:"configured"`
	Connected  bool         `json:"connected"`
	Shop       *domain.Shop `json:"shop,omitempty"`
}

// AdminService serves the admin diagnostics endpoints.
type AdminService struct {
	api        AdminAPI
	configured bool
	logger     *slog.Logger
}

// NewAdminService creates a new admin service. configured reports whether an
// admin access token was supplied.
func NewAdminService(api AdminAPI, configured bool, logger *slog.Logger) *AdminService {
	return &AdminService{api: api, configured: configured, logger: logger}
}

// Status checks access and, when it works, loads the shop summary. It never
// fails; an unusable API is reported in the result.
func (s *AdminService) Status(ctx context.Context) AdminStatus {
	if !s.configured {
		return AdminStatus{}
	}
	status := AdminStatus{Configured: true, Connected: s.api.CheckAccess(ctx)}
	if !status.Connected {
		return status
	}
	shop, err := s.api.Shop(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load shop", slog.String("error", err.Error()))
		return status
	}
	status.Shop = shop
	return status
}

func (s *AdminService) Products(ctx context.Context, first int, after string) (pagination.Page[domain.AdminProduct], error) {
	if err := checkFirst(first); err != nil {
		return pagination.Page[domain.AdminProduct]{}, err
	}
	return s.api.Products(ctx, first, after)
}

// Orders lists orders; query uses the admin search syntax, e.g. "status:open".
func (s *AdminService) Orders(ctx context.Context, first int, after, query string) (pagination.Page[domain.AdminOrder], error) {
	if err := checkFirst(first); err != nil {
		return pagination.Page[domain.AdminOrder]{}, err
	}
	return s.api.Orders(ctx, first, after, query)
}
