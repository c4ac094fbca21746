package service

import "github.com/utafrali/calm-headless/pkg/logger"

const (
	notSet         = "Not set"
	notSetOptional = "Not set (optional)"
)

// EnvSettings is the subset of configuration the diagnostics report covers.
type EnvSettings struct {
	Environment             string
	StoreDomain             string
	StorefrontPublicToken   string
	StorefrontPrivateToken  string
	AdminAPIToken           string
	CustomerAccountClientID string
	CustomerAccountAPIURL   string
}

// EnvReport shows which commerce variables are set. Secrets are masked.
type EnvReport struct {
	Environment string        `json:"environment"`
	Shopify     EnvShopify    `json:"shopify"`
	Status      EnvValidation `json:"status"`
}

type EnvShopify struct {
	StoreDomain             string `json:"store_domain"`
	StorefrontPublicToken   string `json:"storefront_public_token"`
	StorefrontPrivateToken  string `json:"storefront_private_token"`
	AdminAPIToken           string `json:"admin_api_token"`
	CustomerAccountClientID string `json:"customer_account_client_id"`
	CustomerAccountAPIURL   string `json:"customer_account_api_url"`
}

type EnvValidation struct {
	IsValid                bool     `json:"is_valid"`
	StoreDomain            bool     `json:"store_domain"`
	StorefrontPublicToken  bool     `json:"storefront_public_token"`
	StorefrontPrivateToken bool     `json:"storefront_private_token"`
	AdminAPIToken          bool     `json:"admin_api_token"`
	CustomerAccount        bool     `json:"customer_account"`
	MissingVars            []string `json:"missing_vars"`
}

// EnvService builds the environment diagnostics report.
type EnvService struct {
	settings EnvSettings
}

// NewEnvService creates a new env service.
func NewEnvService(settings EnvSettings) *EnvService {
	return &EnvService{settings: settings}
}

func maskOr(secret, fallback string) string {
	if secret == "" {
		return fallback
	}
	return logger.Mask(secret)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Report returns the diagnostics report. Only the Storefront variables are
// required; the admin and customer account ones are optional.
func (s *EnvService) Report() EnvReport {
	set := s.settings
	v := EnvValidation{
		StoreDomain:            set.StoreDomain != "",
		StorefrontPublicToken:  set.StorefrontPublicToken != "",
		StorefrontPrivateToken: set.StorefrontPrivateToken != "",
		AdminAPIToken:          set.AdminAPIToken != "",
		CustomerAccount:        set.CustomerAccountClientID != "" && set.CustomerAccountAPIURL != "",
		MissingVars:            []string{},
	}
	if !v.StoreDomain {
		v.MissingVars = append(v.MissingVars, "SHOPIFY_STORE_DOMAIN")
	}
	if !v.StorefrontPublicToken {
		v.MissingVars = append(v.MissingVars, "SHOPIFY_STOREFRONT_PUBLIC_TOKEN")
	}
	if !v.StorefrontPrivateToken {
		v.MissingVars = append(v.MissingVars, "SHOPIFY_STOREFRONT_PRIVATE_TOKEN")
	}
	v.IsValid = len(v.MissingVars) == 0

	return EnvReport{
		Environment: set.Environment,
		Shopify: EnvShopify{
			StoreDomain:             valueOr(set.StoreDomain, notSet),
			StorefrontPublicToken:   maskOr(set.StorefrontPublicToken, notSet),
			StorefrontPrivateToken:  maskOr(set.StorefrontPrivateToken, notSet),
			AdminAPIToken:           maskOr(set.AdminAPIToken, notSetOptional),
			CustomerAccountClientID: maskOr(set.CustomerAccountClientID, notSetOptional),
			CustomerAccountAPIURL:   valueOr(set.CustomerAccountAPIURL, notSetOptional),
		},
		Status: v,
	}
}
