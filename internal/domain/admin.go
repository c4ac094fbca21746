package domain

import "time"

// Shop is the store summary returned by the admin API.
type Shop struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	MyshopifyHost string `json:"myshopify_domain,omitempty"`
	PrimaryURL    string `json:"primary_url,omitempty"`
	CurrencyCode  string `json:"currency_code,omitempty"`
	PlanName      string `json:"plan_name,omitempty"`
}

// AdminProduct is the back-office view of a product.
type AdminProduct struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Handle         string    `json:"handle"`
	Status         string    `json:"status"`
	Vendor         string    `json:"vendor,omitempty"`
	ProductType    string    `json:"product_type,omitempty"`
	TotalInventory int       `json:"total_inventory"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AdminOrder is the back-office view of an order.
type AdminOrder struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	CreatedAt         time.Time `json:"created_at"`
	Email             string    `json:"email,omitempty"`
	FinancialStatus   string    `json:"financial_status,omitempty"`
	FulfillmentStatus string    `json:"fulfillment_status,omitempty"`
	Total             Money     `json:"total"`
}
