package domain

import "time"

// Customer is the signed-in shopper as the account API reports it.
type Customer struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"first_name,omitempty"`
	LastName       string   `json:"last_name,omitempty"`
	DisplayName    string   `json:"display_name,omitempty"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	DefaultAddress *Address `json:"default_address,omitempty"`
}

// Address is a customer mailing address.
type Address struct {
	ID                string   `json:"id"`
	Formatted         []string `json:"formatted,omitempty"`
	FirstName         string   `json:"first_name,omitempty"`
	LastName          string   `json:"last_name,omitempty"`
	Company           string   `json:"company,omitempty"`
	Address1          string   `json:"address1"`
	Address2          string   `json:"address2,omitempty"`
	City              string   `json:"city"`
	Province          string   `json:"province,omitempty"`
	Country           string   `json:"country"`
	Zip               string   `json:"zip"`
	Phone             string   `json:"phone,omitempty"`
	IsDefaultShipping bool     `json:"is_default_shipping,omitempty"`
}

// AddressInput is the writable part of an address.
type AddressInput struct {
	FirstName string `json:"first_name,omitempty" validate:"max=255"`
	LastName  string `json:"last_name,omitempty" validate:"max=255"`
	Company   string `json:"company,omitempty" validate:"max=255"`
	Address1  string `json:"address1" validate:"required,max=255"`
	Address2  string `json:"address2,omitempty" validate:"max=255"`
	City      string `json:"city" validate:"required,max=255"`
	Province  string `json:"province,omitempty" validate:"max=255"`
	Country   string `json:"country" validate:"required,max=255"`
	Zip       string `json:"zip" validate:"required,max=32"`
	Phone     string `json:"phone,omitempty" validate:"max=32"`
}

// CustomerUpdate carries profile fields to change; empty fields are left as is.
type CustomerUpdate struct {
	FirstName string `json:"first_name,omitempty" validate:"max=255"`
	LastName  string `json:"last_name,omitempty" validate:"max=255"`
}

// CustomerCreate registers a classic storefront customer.
type CustomerCreate struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=5,max=40"`
	FirstName        string `json:"first_name,omitempty" validate:"max=255"`
	LastName         string `json:"last_name,omitempty" validate:"max=255"`
	AcceptsMarketing bool   `json:"accepts_marketing"`
}

// OrderLine is one line item of a past order.
type OrderLine struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title"`
	Quantity      int    `json:"quantity"`
	VariantID     string `json:"variant_id,omitempty"`
	VariantTitle  string `json:"variant_title,omitempty"`
	Image         *Image `json:"image,omitempty"`
	OriginalTotal *Money `json:"original_total,omitempty"`
}

// Order is a past order of the signed-in customer.
type Order struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	OrderNumber       int         `json:"order_number"`
	ProcessedAt       time.Time   `json:"processed_at"`
	FinancialStatus   string      `json:"financial_status,omitempty"`
	FulfillmentStatus string      `json:"fulfillment_status,omitempty"`
	Total             Money       `json:"total"`
	ShippingAddress   *Address    `json:"shipping_address,omitempty"`
	Lines             []OrderLine `json:"lines"`
}

// AccessToken is a classic storefront customer token.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenSet is the result of an OAuth token endpoint call. CustomerID is only
// present on the authorization code exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	CustomerID   string
}
