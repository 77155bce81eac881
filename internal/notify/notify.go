// internal/notify/notify.go
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel names for published notifications.
const (
	ChannelOrderChanged = "bookstore.orders.changed"
	ChannelBooksUpdated = "bookstore.books.updated"
)

// Notifier emits change notifications after a successful commit. It is called
// by the services outside the transaction; delivery is best effort and never
// affects the committed state.
type Notifier interface {
	OrderChanged(ctx context.Context, orderID uuid.UUID)
	BooksUpdated(ctx context.Context, count int)
}

// Redis publishes notifications on Redis pub/sub channels.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis-backed notifier.
func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

type orderChangedMsg struct {
	OrderID uuid.UUID `json:"order_id"`
	At      time.Time `json:"at"`
}

type booksUpdatedMsg struct {
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

func (n *Redis) OrderChanged(ctx context.Context, orderID uuid.UUID) {
	payload, _ := json.Marshal(orderChangedMsg{OrderID: orderID, At: time.Now().UTC()})
	if err := n.client.Publish(ctx, ChannelOrderChanged, payload).Err(); err != nil {
		n.logger.WarnContext(ctx, "failed to publish order change", "order_id", orderID, "error", err)
	}
}

func (n *Redis) BooksUpdated(ctx context.Context, count int) {
	payload, _ := json.Marshal(booksUpdatedMsg{Count: count, At: time.Now().UTC()})
	if err := n.client.Publish(ctx, ChannelBooksUpdated, payload).Err(); err != nil {
		n.logger.WarnContext(ctx, "failed to publish books update", "error", err)
	}
}

// Noop discards all notifications. Used when Redis is not configured.
type Noop struct{}

func (Noop) OrderChanged(context.Context, uuid.UUID) {}
func (Noop) BooksUpdated(context.Context, int) {}
