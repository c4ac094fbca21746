package shopify

import (
	"time"

	"github.com/utafrali/calm-headless/internal/domain"
	"github.com/utafrali/calm-headless/pkg/pagination"
)

// Wire shapes of the remote GraphQL schemas. Connections arrive as
// edges/nodes and are flattened into domain types here.

type wireMoney struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

func (m wireMoney) toDomain() domain.Money {
	return domain.Money{Amount: m.Amount, CurrencyCode: m.CurrencyCode}
}

func moneyPtr(m *wireMoney) *domain.Money {
	if m == nil {
		return nil
	}
	d := m.toDomain()
	return &d
}

type wireImage struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	AltText string `json:"altText"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

func (i wireImage) toDomain() domain.Image {
	return domain.Image{ID: i.ID, URL: i.URL, AltText: i.AltText, Width: i.Width, Height: i.Height}
}

func imagePtr(i *wireImage) *domain.Image {
	if i == nil {
		return nil
	}
	d := i.toDomain()
	return &d
}

type wirePageInfo struct {
	HasNextPage     bool    `json:"hasNextPage"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	StartCursor     *string `json:"startCursor"`
	EndCursor       *string `json:"endCursor"`
}

func (p wirePageInfo) toDomain() pagination.PageInfo {
	info := pagination.PageInfo{HasNextPage: p.HasNextPage, HasPreviousPage: p.HasPreviousPage}
	if p.StartCursor != nil {
		info.StartCursor = *p.StartCursor
	}
	if p.EndCursor != nil {
		info.EndCursor = *p.EndCursor
	}
	return info
}

type edge[T any] struct {
	Node T `json:"node"`
}

type connection[T any] struct {
	PageInfo wirePageInfo `json:"pageInfo"`
	Edges    []edge[T]    `json:"edges"`
}

func (c connection[T]) nodes() []T {
	out := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

// mapPage flattens a connection and converts every node with fn.
func mapPage[W, D any](c connection[W], fn func(W) D) pagination.Page[D] {
	items := make([]D, 0, len(c.Edges))
	for _, e := range c.Edges {
		items = append(items, fn(e.Node))
	}
	return pagination.NewPage(items, c.PageInfo.toDomain())
}

func mapSlice[W, D any](in []W, fn func(W) D) []D {
	out := make([]D, 0, len(in))
	for _, w := range in {
		out = append(out, fn(w))
	}
	return out
}

// --- Storefront catalog ---

type wireVariant struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	AvailableForSale bool       `json:"availableForSale"`
	Price            wireMoney  `json:"price"`
	CompareAtPrice   *wireMoney `json:"compareAtPrice"`
	SelectedOptions  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
}

func (v wireVariant) toDomain() domain.Variant {
	opts := make([]domain.SelectedOption, 0, len(v.SelectedOptions))
	for _, o := range v.SelectedOptions {
		opts = append(opts, domain.SelectedOption{Name: o.Name, Value: o.Value})
	}
	return domain.Variant{
		ID:               v.ID,
		Title:            v.Title,
		AvailableForSale: v.AvailableForSale,
		Price:            v.Price.toDomain(),
		CompareAtPrice:   moneyPtr(v.CompareAtPrice),
		SelectedOptions:  opts,
	}
}

type wireProduct struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Handle           string `json:"handle"`
	Description      string `json:"description"`
	DescriptionHTML  string `json:"descriptionHtml"`
	AvailableForSale bool   `json:"availableForSale"`
	PriceRange       struct {
		MinVariantPrice wireMoney `json:"minVariantPrice"`
		MaxVariantPrice wireMoney `json:"maxVariantPrice"`
	} `json:"priceRange"`
	Images   connection[wireImage]   `json:"images"`
	Variants connection[wireVariant] `json:"variants"`
}

func (p wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:               p.ID,
		Title:            p.Title,
		Handle:           p.Handle,
		Description:      p.Description,
		DescriptionHTML:  p.DescriptionHTML,
		AvailableForSale: p.AvailableForSale,
		PriceRange: domain.PriceRange{
			Min: p.PriceRange.MinVariantPrice.toDomain(),
			Max: p.PriceRange.MaxVariantPrice.toDomain(),
		},
		Images:   mapSlice(p.Images.nodes(), wireImage.toDomain),
		Variants: mapSlice(p.Variants.nodes(), wireVariant.toDomain),
	}
}

type wireCollection struct {
	ID          string                   `json:"id"`
	Title       string                   `json:"title"`
	Handle      string                   `json:"handle"`
	Description string                   `json:"description"`
	Image       *wireImage               `json:"image"`
	Products    *connection[wireProduct] `json:"products"`
}

func (c wireCollection) toDomain() domain.Collection {
	out := domain.Collection{
		ID:          c.ID,
		Title:       c.Title,
		Handle:      c.Handle,
		Description: c.Description,
		Image:       imagePtr(c.Image),
	}
	if c.Products != nil {
		page := mapPage(*c.Products, wireProduct.toDomain)
		out.Products = &page
	}
	return out
}

// --- Storefront cart ---

type wireCartLine struct {
	ID          string `json:"id"`
	Quantity    int    `json:"quantity"`
	Merchandise struct {
		ID      string    `json:"id"`
		Title   string    `json:"title"`
		Price   wireMoney `json:"price"`
		Product struct {
			Title  string                `json:"title"`
			Handle string                `json:"handle"`
			Images connection[wireImage] `json:"images"`
		} `json:"product"`
	} `json:"merchandise"`
}

func (l wireCartLine) toDomain() domain.CartLine {
	m := domain.Merchandise{
		ID:            l.Merchandise.ID,
		Title:         l.Merchandise.Title,
		Price:         l.Merchandise.Price.toDomain(),
		ProductTitle:  l.Merchandise.Product.Title,
		ProductHandle: l.Merchandise.Product.Handle,
	}
	if imgs := l.Merchandise.Product.Images.nodes(); len(imgs) > 0 {
		img := imgs[0].toDomain()
		m.Image = &img
	}
	return domain.CartLine{ID: l.ID, Quantity: l.Quantity, Merchandise: m}
}

type wireCart struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Cost        struct {
		SubtotalAmount wireMoney  `json:"subtotalAmount"`
		TotalAmount    wireMoney  `json:"totalAmount"`
		TotalTaxAmount *wireMoney `json:"totalTaxAmount"`
	} `json:"cost"`
	Lines connection[wireCartLine] `json:"lines"`
}

func (c *wireCart) toDomain() *domain.Cart {
	if c == nil {
		return nil
	}
	return &domain.Cart{
		ID:          c.ID,
		CheckoutURL: c.CheckoutURL,
		Lines:       mapSlice(c.Lines.nodes(), wireCartLine.toDomain),
		Cost: domain.CartCost{
			Subtotal: c.Cost.SubtotalAmount.toDomain(),
			Total:    c.Cost.TotalAmount.toDomain(),
			Tax:      moneyPtr(c.Cost.TotalTaxAmount),
		},
	}
}

// --- Customers ---

type wireAccessToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (t *wireAccessToken) toDomain() *domain.AccessToken {
	if t == nil {
		return nil
	}
	return &domain.AccessToken{AccessToken: t.AccessToken, ExpiresAt: t.ExpiresAt}
}

type wireAddress struct {
	ID                       string   `json:"id"`
	Formatted                []string `json:"formatted"`
	FirstName                string   `json:"firstName"`
	LastName                 string   `json:"lastName"`
	Company                  string   `json:"company"`
	Address1                 string   `json:"address1"`
	Address2                 string   `json:"address2"`
	City                     string   `json:"city"`
	Province                 string   `json:"province"`
	Country                  string   `json:"country"`
	Zip                      string   `json:"zip"`
	Phone                    string   `json:"phone"`
	IsDefaultShippingAddress bool     `json:"isDefaultShippingAddress"`
}

func (a wireAddress) toDomain() domain.Address {
	return domain.Address{
		ID:                a.ID,
		Formatted:         a.Formatted,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		Company:           a.Company,
		Address1:          a.Address1,
		Address2:          a.Address2,
		City:              a.City,
		Province:          a.Province,
		Country:           a.Country,
		Zip:               a.Zip,
		Phone:             a.Phone,
		IsDefaultShipping: a.IsDefaultShippingAddress,
	}
}

func addressPtr(a *wireAddress) *domain.Address {
	if a == nil {
		return nil
	}
	d := a.toDomain()
	return &d
}

// addressInput renders the MailingAddressInput variables.
func addressInput(in domain.AddressInput) map[string]any {
	out := map[string]any{
		"address1": in.Address1,
		"city":     in.City,
		"country":  in.Country,
		"zip":      in.Zip,
	}
	optional := map[string]string{
		"firstName": in.FirstName,
		"lastName":  in.LastName,
		"company":   in.Company,
		"address2":  in.Address2,
		"province":  in.Province,
		"phone":     in.Phone,
	}
	for k, v := range optional {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type wireCustomer struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	EmailAddress *struct {
		EmailAddress string `json:"emailAddress"`
	} `json:"emailAddress"`
	PhoneNumber *struct {
		PhoneNumber string `json:"phoneNumber"`
	} `json:"phoneNumber"`
	DefaultAddress *wireAddress `json:"defaultAddress"`
}

func (c *wireCustomer) toDomain() *domain.Customer {
	if c == nil {
		return nil
	}
	out := &domain.Customer{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		DisplayName:    c.DisplayName,
		Email:          c.Email,
		Phone:          c.Phone,
		DefaultAddress: addressPtr(c.DefaultAddress),
	}
	// The account API nests contact details; the storefront API does not.
	if c.EmailAddress != nil && out.Email == "" {
		out.Email = c.EmailAddress.EmailAddress
	}
	if c.PhoneNumber != nil && out.Phone == "" {
		out.Phone = c.PhoneNumber.PhoneNumber
	}
	return out
}

type wireOrderLine struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Quantity           int        `json:"quantity"`
	OriginalTotalPrice *wireMoney `json:"originalTotalPrice"`
	Variant            *struct {
		ID    string     `json:"id"`
		Title string     `json:"title"`
		Image *wireImage `json:"image"`
	} `json:"variant"`
}

func (l wireOrderLine) toDomain() domain.OrderLine {
	out := domain.OrderLine{
		ID:            l.ID,
		Title:         l.Title,
		Quantity:      l.Quantity,
		OriginalTotal: moneyPtr(l.OriginalTotalPrice),
	}
	if l.Variant != nil {
		out.VariantID = l.Variant.ID
		out.VariantTitle = l.Variant.Title
		out.Image = imagePtr(l.Variant.Image)
	}
	return out
}

type wireOrder struct {
	ID                string                    `json:"id"`
	Name              string                    `json:"name"`
	OrderNumber       int                       `json:"orderNumber"`
	ProcessedAt       time.Time                 `json:"processedAt"`
	FinancialStatus   string                    `json:"financialStatus"`
	FulfillmentStatus string                    `json:"fulfillmentStatus"`
	CurrentTotalPrice wireMoney                 `json:"currentTotalPrice"`
	ShippingAddress   *wireAddress              `json:"shippingAddress"`
	LineItems         connection[wireOrderLine] `json:"lineItems"`
}

func (o wireOrder) toDomain() domain.Order {
	return domain.Order{
		ID:                o.ID,
		Name:              o.Name,
		OrderNumber:       o.OrderNumber,
		ProcessedAt:       o.ProcessedAt,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Total:             o.CurrentTotalPrice.toDomain(),
		ShippingAddress:   addressPtr(o.ShippingAddress),
		Lines:             mapSlice(o.LineItems.nodes(), wireOrderLine.toDomain),
	}
}

// --- Admin ---

type wireShop struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	MyshopifyDomain string `json:"myshopifyDomain"`
	CurrencyCode    string `json:"currencyCode"`
	PrimaryDomain   struct {
		URL string `json:"url"`
	} `json:"primaryDomain"`
	Plan struct {
		DisplayName string `json:"displayName"`
	} `json:"plan"`
}

func (s wireShop) toDomain() *domain.Shop {
	return &domain.Shop{
		Name:          s.Name,
		Email:         s.Email,
		MyshopifyHost: s.MyshopifyDomain,
		PrimaryURL:    s.PrimaryDomain.URL,
		CurrencyCode:  s.CurrencyCode,
		PlanName:      s.Plan.DisplayName,
	}
}

type wireAdminProduct struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Handle         string    `json:"handle"`
	Status         string    `json:"status"`
	Vendor         string    `json:"vendor"`
	ProductType    string    `json:"productType"`
	TotalInventory int       `json:"totalInventory"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (p wireAdminProduct) toDomain() domain.AdminProduct {
	return domain.AdminProduct{
		ID:             p.ID,
		Title:          p.Title,
		Handle:         p.Handle,
		Status:         p.Status,
		Vendor:         p.Vendor,
		ProductType:    p.ProductType,
		TotalInventory: p.TotalInventory,
		UpdatedAt:      p.UpdatedAt,
	}
}

type wireAdminOrder struct {
	ID                       string    `json:"id"`
	Name                     string    `json:"name"`
	CreatedAt                time.Time `json:"createdAt"`
	Email                    string    `json:"email"`
	DisplayFinancialStatus   string    `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string    `json:"displayFulfillmentStatus"`
	TotalPriceSet            struct {
		ShopMoney wireMoney `json:"shopMoney"`
	} `json:"totalPriceSet"`
}

func (o wireAdminOrder) toDomain() domain.AdminOrder {
	return domain.AdminOrder{
		ID:                o.ID,
		Name:              o.Name,
		CreatedAt:         o.CreatedAt,
		Email:             o.Email,
		FinancialStatus:   o.DisplayFinancialStatus,
		FulfillmentStatus: o.DisplayFulfillmentStatus,
		Total:             o.TotalPriceSet.ShopMoney.toDomain(),
	}
}
