package domain

import "time"

// Money is a decimal amount with its ISO currency code, as the storefront
// reports it. Amounts stay strings so no precision is lost in transit.
type Money struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

// Image is a product or variant image.
type Image struct {
	ID      string `json:"id,omitempty"`
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// Merchandise is the variant a cart line points at.
type Merchandise struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Price         Money  `json:"price"`
	ProductTitle  string `json:"product_title"`
	ProductHandle string `json:"product_handle"`
	Image         *Image `json:"image,omitempty"`
}

// CartLine is one line of a remote cart snapshot.
type CartLine struct {
	ID          string      `json:"id"`
	Quantity    int         `json:"quantity"`
	Merchandise Merchandise `json:"merchandise"`
}

// CartCost holds the aggregate cost fields of a cart.
type CartCost struct {
	Subtotal Money  `json:"subtotal"`
	Total    Money  `json:"total"`
	Tax      *Money `json:"tax,omitempty"`
}

// Cart is a snapshot of the remote cart. It is replaced wholesale on every
// mutation response and never edited locally.
type Cart struct {
	ID          string     `json:"id"`
	CheckoutURL string     `json:"checkout_url"`
	Lines       []CartLine `json:"lines"`
	Cost        CartCost   `json:"cost"`
}

// ItemCount returns the sum of line quantities.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	var count int
	for _, l := range c.Lines {
		count += l.Quantity
	}
	return count
}

// LineIDs returns the ids of every line, in cart order.
func (c *Cart) LineIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ID)
	}
	return ids
}

// FindLine returns the line with the given id, or nil.
func (c *Cart) FindLine(lineID string) *CartLine {
	if c == nil {
		return nil
	}
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i]
		}
	}
	return nil
}

// LineInput adds a quantity of a merchandise variant to a cart.
type LineInput struct {
	MerchandiseID string `json:"merchandise_id" validate:"required,gid"`
	Quantity      int    `json:"quantity" validate:"gte=1"`
}

// LineUpdate sets the quantity of an existing line. Zero removes the line.
type LineUpdate struct {
	ID       string `json:"id" validate:"required,gid"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

// CartMirror is the server-held copy of a visitor's cart plus the drawer
// flag. Version increases by one on every save.
type CartMirror struct {
	CartID    string    `json:"cart_id"`
	Cart      *Cart     `json:"cart"`
	Open      bool      `json:"open"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the mirror belongs to cartID. A mirror for any
// other id is stale and must be discarded.
func (m *CartMirror) Matches(cartID string) bool {
	return m != nil && cartID != "" && m.CartID == cartID && m.Cart != nil && m.Cart.ID == cartID
}

// CartView is what the cart endpoints return to the browser.
type CartView struct {
	Cart    *Cart `json:"cart"`
	Open    bool  `json:"open"`
	Count   int   `json:"count"`
	Empty   bool  `json:"empty"`
	Version int   `json:"version"`
}

// NewCartView renders a mirror. A nil mirror is the empty, closed cart.
func NewCartView(m *CartMirror) CartView {
	if m == nil || m.Cart == nil {
		return CartView{Empty: true}
	}
	count := m.Cart.ItemCount()
	return CartView{
		Cart:    m.Cart,
		Open:    m.Open,
		Count:   count,
		Empty:   len(m.Cart.Lines) == 0,
		Version: m.Version,
	}
}
