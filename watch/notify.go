package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier receives new matches
type Notifier interface {
	Notify(ctx context.Context, match Match) error
}

// LogNotifier writes matches to the log
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs at info level
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (n *LogNotifier) Notify(_ context.Context, match Match) error {
	event := n.logger.Info().
		Str("watch", match.Watch).
		Int64("item_id", match.Item.ItemID).
		Str("title", match.Item.Title).
		Float64("price", match.Item.Price).
		Str("currency", match.Item.PriceCurrency)

	switch {
	case match.Bought:
		event.Bool("bought", true).Msg("Bought matching item")
	case match.BuyError != "":
		event.Str("buy_error", match.BuyError).Msg("Matching item found, purchase failed")
	case match.WouldBuy:
		event.Bool("dry_run", true).Msg("Matching item found, would buy")
	default:
		event.Msg("Matching item found")
	}
	return nil
}

// Publisher is the part of *nats.Conn used for notifications
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes matches as JSON to <subject>.<watch>
type NATSNotifier struct {
	publisher Publisher
	subject   string
}

// NewNATSNotifier creates a notifier publishing under subject
func NewNATSNotifier(publisher Publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = "lolzmarket.matches"
	}
	return &NATSNotifier{publisher: publisher, subject: strings.TrimSuffix(subject, ".")}
}

// Event is the published notification payload
type Event struct {
	Watch      string    `json:"watch"`
	ItemID     int64     `json:"item_id"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency,omitempty"`
	CategoryID int       `json:"category_id"`
	Origin     string    `json:"origin,omitempty"`
	Bought     bool      `json:"bought"`
	WouldBuy   bool      `json:"would_buy,omitempty"`
	BuyError   string    `json:"buy_error,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Notify implements Notifier
func (n *NATSNotifier) Notify(_ context.Context, match Match) error {
	payload, err := json.Marshal(newEvent(match))
	if err != nil {
		return fmt.Errorf("failed to encode match event: %w", err)
	}

	subject := n.subject
	if token := subjectToken(match.Watch); token != "" {
		subject += "." + token
	}

	if err := n.publisher.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func newEvent(match Match) Event {
	return Event{
		Watch:      match.Watch,
		ItemID:     match.Item.ItemID,
		Title:      match.Item.Title,
		Price:      match.Item.Price,
		Currency:   match.Item.PriceCurrency,
		CategoryID: match.Item.CategoryID,
		Origin:     string(match.Item.ItemOrigin),
		Bought:     match.Bought,
		WouldBuy:   match.WouldBuy,
		BuyError:   match.BuyError,
		DetectedAt: match.DetectedAt,
	}
}

// subjectToken makes a watch name safe to use as one NATS subject token
func subjectToken(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, name)
}
