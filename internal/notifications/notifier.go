// Package notifications publishes per-user activity events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"pulse/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Event types published to a user's channel.
const (
	EventNewMessage  = "message.new"
	EventNewFollower = "follower.new"
)

// Event is the payload delivered on a user's channel.
type Event struct {
	Type      string    `json:"type"`
	ActorID   int64     `json:"actor_id,string"`
	SubjectID int64     `json:"subject_id,string,omitempty"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier provides helpers to publish events into Redis channels.
// A nil client turns every call into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel is the channel carrying events addressed to userID.
func UserChannel(userID int64) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID int64, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// Notify publishes ev and only logs a failure. Delivery is best effort and
// never fails the request that produced the event.
func (n *Notifier) Notify(ctx context.Context, userID int64, ev Event) {
	if err := n.PublishUser(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "event publish failed",
			slog.String("type", ev.Type),
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage
// for each incoming event until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, ev Event),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed event", slog.String("channel", msg.Channel))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, ev)
				}()
			}
		}
	}()

	return nil
}
