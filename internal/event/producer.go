package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/calm-headless/internal/domain"
	pkgkafka "github.com/utafrali/calm-headless/pkg/kafka"
	"github.com/utafrali/calm-headless/pkg/logger"
)

// Cart event types. All three share one topic so consumers see them in
// order per cart.
const (
	TypeCartCreated = "cart.created"
	TypeCartUpdated = "cart.updated"
	TypeCartCleared = "cart.cleared"
)

// DefaultCartTopic is the topic cart events are written to.
var DefaultCartTopic = pkgkafka.Topic("cart", "events")

// Aggregate type constant.
const AggregateTypeCart = "cart"

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront-bff"

// Publisher announces cart changes. Implementations return errors; callers
// log them and carry on.
type Publisher interface {
	PublishCartCreated(ctx context.Context, cart *domain.Cart, version int) error
	PublishCartUpdated(ctx context.Context, cart *domain.Cart, version int) error
	PublishCartCleared(ctx context.Context, cartID string, version int) error
}

// CartData is the payload of cart.created and cart.updated.
type CartData struct {
	CartID    string         `json:"cart_id"`
	Lines     []CartLineData `json:"lines"`
	ItemCount int            `json:"item_count"`
	Subtotal  domain.Money   `json:"subtotal"`
	Total     domain.Money   `json:"total"`
}

// CartLineData is the line payload within cart events.
type CartLineData struct {
	LineID        string       `json:"line_id"`
	MerchandiseID string       `json:"merchandise_id"`
	ProductHandle string       `json:"product_handle,omitempty"`
	Quantity      int          `json:"quantity"`
	Price         domain.Money `json:"price"`
}

// CartClearedData is the payload of cart.cleared.
type CartClearedData struct {
	CartID string `json:"cart_id"`
}

type eventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart events to Kafka.
type Producer struct {
	writer eventWriter
	topic  string
	logger *slog.Logger
}

// NewProducer creates a cart event producer. An empty topic uses
// DefaultCartTopic.
func NewProducer(kafka *pkgkafka.Producer, topic string, logger *slog.Logger) *Producer {
	return newProducer(kafka, topic, logger)
}

func newProducer(w eventWriter, topic string, logger *slog.Logger) *Producer {
	if topic == "" {
		topic = DefaultCartTopic
	}
	return &Producer{writer: w, topic: topic, logger: logger}
}

func cartData(cart *domain.Cart) CartData {
	lines := make([]CartLineData, len(cart.Lines))
	for i, l := range cart.Lines {
		lines[i] = CartLineData{
			LineID:        l.ID,
			MerchandiseID: l.Merchandise.ID,
			ProductHandle: l.Merchandise.ProductHandle,
			Quantity:      l.Quantity,
			Price:         l.Merchandise.Price,
		}
	}
	return CartData{
		CartID:    cart.ID,
		Lines:     lines,
		ItemCount: cart.ItemCount(),
		Subtotal:  cart.Cost.Subtotal,
		Total:     cart.Cost.Total,
	}
}

// PublishCartCreated publishes a cart.created event.
func (p *Producer) PublishCartCreated(ctx context.Context, cart *domain.Cart, version int) error {
	return p.publish(ctx, TypeCartCreated, cart.ID, version, cartData(cart))
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart, version int) error {
	return p.publish(ctx, TypeCartUpdated, cart.ID, version, cartData(cart))
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, cartID string, version int) error {
	return p.publish(ctx, TypeCartCleared, cartID, version, CartClearedData{CartID: cartID})
}

func (p *Producer) publish(ctx context.Context, eventType, cartID string, version int, data any) error {
	event, err := pkgkafka.NewEvent(eventType, cartID, AggregateTypeCart, SourceStorefront, version, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.writer.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published cart event",
		slog.String("event_type", eventType),
		slog.String("cart_id", cartID),
		slog.Int("version", version),
	)
	return nil
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishCartCreated(context.Context, *domain.Cart, int) error { return nil }
func (NopPublisher) PublishCartUpdated(context.Context, *domain.Cart, int) error { return nil }
func (NopPublisher) PublishCartCleared(context.Context, string, int) error       { return nil }
