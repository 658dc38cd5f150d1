package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-farm-market/internal/auth"
	kafkax "github.com/ariefcatur/go-farm-market/internal/kafka"
	"github.com/ariefcatur/go-farm-market/internal/orders"
	"github.com/ariefcatur/go-farm-market/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Deduper remembers which events were already handled.
type Deduper interface {
	// FirstSeen marks id and reports whether this call marked it.
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type RedisDeduper struct {
	Redis   *redis.Client
	Service string
}

func (d *RedisDeduper) key(id string) string { return fmt.Sprintf(redisx.KeyDedup, d.Service, id) }

func (d *RedisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return redisx.MarkOnce(ctx, d.Redis, d.key(id), redisx.TTLDedup)
}

func (d *RedisDeduper) Forget(ctx context.Context, id string) error {
	return d.Redis.Del(ctx, d.key(id)).Err()
}

type Notification struct {
	RecipientID string
	Role        auth.Role
	OrderID     string
	Message     string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender delivers notifications to the log.
type LogSender struct{ Log *slog.Logger }

func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Log.Info("notification", "recipient_id", n.RecipientID, "role", n.Role, "order_id", n.OrderID, "message", n.Message)
	return nil
}

// Service tells the party that has to act next about order events: the
// farmer when an order arrives, the consumer when its status moves.
type Service struct {
	Dedup  Deduper
	Sender Sender
	Log    *slog.Logger
}

// HandleMessage is a kafka.Handler. Undecodable messages are logged and
// skipped so they do not block the partition.
func (s *Service) HandleMessage(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.Header(m, "x-event-type"); t != "" && !handled(t) {
		return nil
	}
	env, err := kafkax.Decode[orders.Envelope](m.Value)
	if err != nil {
		s.Log.Error("drop undecodable event", "topic", m.Topic, "offset", m.Offset, "error", err)
		return nil
	}

	n, ok, err := notificationFor(env)
	if err != nil {
		s.Log.Error("drop undecodable payload", "event_id", env.EventID, "event_type", env.EventType, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	first, err := s.Dedup.FirstSeen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		s.Log.Debug("skip duplicate event", "event_id", env.EventID)
		return nil
	}

	if err := s.Sender.Send(ctx, n); err != nil {
		if ferr := s.Dedup.Forget(ctx, env.EventID); ferr != nil {
			s.Log.Warn("dedup rollback failed", "event_id", env.EventID, "error", ferr)
		}
		return fmt.Errorf("send notification for %s: %w", env.EventID, err)
	}
	return nil
}

func handled(eventType string) bool {
	return eventType == orders.EventOrderCreated || eventType == orders.EventOrderStatusChanged
}

func notificationFor(env orders.Envelope) (Notification, bool, error) {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return Notification{}, false, err
		}
		return Notification{
			RecipientID: p.FarmerID,
			Role:        auth.RoleFarmer,
			OrderID:     p.OrderID,
			Message: fmt.Sprintf("new %s order %s with %d item(s), subtotal %d cents",
				p.DeliveryMethod, p.OrderID, len(p.Items), p.SubtotalCents),
		}, true, nil
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return Notification{}, false, err
		}
		return Notification{
			RecipientID: p.ConsumerID,
			Role:        auth.RoleConsumer,
			OrderID:     p.OrderID,
			Message:     fmt.Sprintf("order %s moved from %s to %s", p.OrderID, p.From, p.To),
		}, true, nil
	}
	return Notification{}, false, nil
}
