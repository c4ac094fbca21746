package domain

import "github.com/utafrali/calm-headless/pkg/pagination"

// SelectedOption is one option value of a variant, e.g. Size: M.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is a purchasable configuration of a product.
type Variant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	AvailableForSale bool             `json:"available_for_sale"`
	Price            Money            `json:"price"`
	CompareAtPrice   *Money           `json:"compare_at_price,omitempty"`
	SelectedOptions  []SelectedOption `json:"selected_options"`
}

// PriceRange is the span of variant prices of a product.
type PriceRange struct {
	Min Money `json:"min"`
	Max Money `json:"max"`
}

// Product is a read-only projection of a catalog product.
type Product struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Handle           string     `json:"handle"`
	Description      string     `json:"description"`
	DescriptionHTML  string     `json:"description_html,omitempty"`
	AvailableForSale bool       `json:"available_for_sale"`
	PriceRange       PriceRange `json:"price_range"`
	Images           []Image    `json:"images"`
	Variants         []Variant  `json:"variants"`
}

// Collection is a named group of products. Products is only populated when
// the collection was fetched by handle.
type Collection struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	Handle      string                    `json:"handle"`
	Description string                    `json:"description"`
	Image       *Image                    `json:"image,omitempty"`
	Products    *pagination.Page[Product] `json:"products,omitempty"`
}
