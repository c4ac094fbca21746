package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/utafrali/calm-headless/internal/shopify"
	"github.com/utafrali/calm-headless/pkg/httpclient"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testDoer() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
}

type fakeLine struct {
	id      string
	variant string
	qty     int
}

type fakeCart struct {
	id    string
	lines []fakeLine
}

// fakeShop is a stateful stand-in for the Storefront API cart surface.
type fakeShop struct {
	mu     sync.Mutex
	carts  map[string]*fakeCart
	nextID int
	calls  map[string]int
	// fail maps an operation name to a raw response body served instead of
	// the real answer.
	fail map[string]string
	// status, when set, is served with an error body for every request.
	status int
}

func newFakeShop(t *testing.T) (*fakeShop, *shopify.Storefront) {
	t.Helper()
	shop := &fakeShop{
		carts: make(map[string]*fakeCart),
		calls: make(map[string]int),
		fail:  make(map[string]string),
	}
	srv := httptest.NewServer(http.HandlerFunc(shop.serve(t)))
	t.Cleanup(srv.Close)
	sf := shopify.NewStorefront(shopify.StorefrontConfig{Endpoint: srv.URL, PublicToken: "public"}, testDoer())
	return shop, sf
}

func (f *fakeShop) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeShop) setFail(op, body string) {
	f.mu.Lock()
	f.fail[op] = body
	f.mu.Unlock()
}

func (f *fakeShop) setStatus(status int) {
	f.mu.Lock()
	f.status = status
	f.mu.Unlock()
}

// expire drops a cart as if it had been completed or timed out remotely.
func (f *fakeShop) expire(cartID string) {
	f.mu.Lock()
	delete(f.carts, cartID)
	f.mu.Unlock()
}

// lineQuantity reads a line straight from the remote state.
func (f *fakeShop) lineQuantity(cartID, lineID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[cartID]
	if !ok {
		return 0, false
	}
	for _, l := range c.lines {
		if l.id == lineID {
			return l.qty, true
		}
	}
	return 0, false
}

func (f *fakeShop) serve(t *testing.T) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables     map[string]any `json:"variables"`
			OperationName string         `json:"operationName"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls[body.OperationName]++

		w.Header().Set("Content-Type", "application/json")
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"errors":[{"message":"upstream unavailable"}]}`))
			return
		}
		if raw, ok := f.fail[body.OperationName]; ok {
			_, _ = w.Write([]byte(raw))
			return
		}

		data := f.answer(body.OperationName, body.Variables)
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"data": data}))
	}
}

func (f *fakeShop) answer(op string, vars map[string]any) map[string]any {
	cartID, _ := vars["cartId"].(string)
	switch op {
	case "GetCart":
		return map[string]any{"cart": f.render(f.carts[cartID])}

	case "cartCreate":
		f.nextID++
		c := &fakeCart{id: fmt.Sprintf("gid://shopify/Cart/c%d?key=k%d", f.nextID, f.nextID)}
		f.carts[c.id] = c
		input, _ := vars["input"].(map[string]any)
		f.addLines(c, input["lines"])
		return payload(op, f.render(c), nil)

	case "cartLinesAdd":
		c, ok := f.carts[cartID]
		if !ok {
			return unknownCart(op)
		}
		f.addLines(c, vars["lines"])
		return payload(op, f.render(c), nil)

	case "cartLinesUpdate":
		c, ok := f.carts[cartID]
		if !ok {
			return unknownCart(op)
		}
		for _, raw := range vars["lines"].([]any) {
			u := raw.(map[string]any)
			idx := c.index(u["id"].(string))
			if idx < 0 {
				return payload(op, nil, []any{map[string]any{"field": []string{"lines"}, "message": "The merchandise line with id " + u["id"].(string) + " does not exist."}})
			}
			qty := int(u["quantity"].(float64))
			if qty == 0 {
				c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
				continue
			}
			c.lines[idx].qty = qty
		}
		return payload(op, f.render(c), nil)

	case "cartLinesRemove":
		c, ok := f.carts[cartID]
		if !ok {
			return unknownCart(op)
		}
		for _, raw := range vars["lineIds"].([]any) {
			idx := c.index(raw.(string))
			if idx < 0 {
				return payload(op, nil, []any{map[string]any{"field": []string{"lineIds"}, "message": "The merchandise line with id " + raw.(string) + " does not exist."}})
			}
			c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		}
		return payload(op, f.render(c), nil)
	}
	return map[string]any{}
}

// unknownCart is the answer the Storefront API gives for a mutation on an
// expired or unknown cart id.
func unknownCart(op string) map[string]any {
	return payload(op, nil, []any{map[string]any{
		"code":    "INVALID",
		"field":   []string{"cartId"},
		"message": "The specified cart does not exist.",
	}})
}

func payload(op string, cart any, userErrors []any) map[string]any {
	if userErrors == nil {
		userErrors = []any{}
	}
	return map[string]any{op: map[string]any{"cart": cart, "userErrors": userErrors}}
}

func (c *fakeCart) index(lineID string) int {
	for i, l := range c.lines {
		if l.id == lineID {
			return i
		}
	}
	return -1
}

func (f *fakeShop) addLines(c *fakeCart, raw any) {
	lines, _ := raw.([]any)
	for _, r := range lines {
		in := r.(map[string]any)
		variant := in["merchandiseId"].(string)
		qty := int(in["quantity"].(float64))
		if idx := c.lineFor(variant); idx >= 0 {
			c.lines[idx].qty += qty
			continue
		}
		f.nextID++
		c.lines = append(c.lines, fakeLine{id: "gid://shopify/CartLine/l" + strconv.Itoa(f.nextID), variant: variant, qty: qty})
	}
}

func (c *fakeCart) lineFor(variant string) int {
	for i, l := range c.lines {
		if l.variant == variant {
			return i
		}
	}
	return -1
}

func (f *fakeShop) render(c *fakeCart) any {
	if c == nil {
		return nil
	}
	edges := make([]any, 0, len(c.lines))
	total := 0
	for _, l := range c.lines {
		total += 10 * l.qty
		edges = append(edges, map[string]any{"node": map[string]any{
			"id":       l.id,
			"quantity": l.qty,
			"merchandise": map[string]any{
				"id":      l.variant,
				"title":   "Default",
				"price":   map[string]any{"amount": "10.0", "currencyCode": "EUR"},
				"product": map[string]any{"title": "Mug", "handle": "mug", "images": map[string]any{"edges": []any{}}},
			},
		}})
	}
	amount := map[string]any{"amount": strconv.Itoa(total) + ".0", "currencyCode": "EUR"}
	return map[string]any{
		"id":          c.id,
		"checkoutUrl": "https://shop.example/checkouts/" + c.id,
		"cost":        map[string]any{"subtotalAmount": amount, "totalAmount": amount, "totalTaxAmount": nil},
		"lines":       map[string]any{"edges": edges},
	}
}
