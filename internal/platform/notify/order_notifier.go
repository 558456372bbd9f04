package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/swiftbasket/api/internal/services"
)

// TokenResolver looks up the current device token for an actor. An empty
// token with a nil error means the actor has no registered device.
type TokenResolver func(ctx context.Context, actorID string) (string, error)

// OrderNotifier adapts the FCM notifier to order status notifications,
// resolving the recipient's device token per actor.
type OrderNotifier struct {
	notifier *FCMNotifier
	tokens   TokenResolver
}

// NewOrderNotifier constructs an OrderNotifier.
func NewOrderNotifier(notifier *FCMNotifier, tokens TokenResolver) (*OrderNotifier, error) {
	if notifier == nil {
		return nil, errors.New("order notifier: fcm notifier is required")
	}
	if tokens == nil {
		return nil, errors.New("order notifier: token resolver is required")
	}
	return &OrderNotifier{notifier: notifier, tokens: tokens}, nil
}

// NotifyOrder pushes an order update to the actor's device. Actors without a
// registered token are skipped without error; delivery is best-effort.
func (n *OrderNotifier) NotifyOrder(ctx context.Context, notification services.OrderNotification) (bool, error) {
	token, err := n.tokens(ctx, notification.ActorID)
	if err != nil {
		return false, fmt.Errorf("order notifier: resolve token for %s: %w", notification.ActorID, err)
	}
	if token == "" {
		return false, nil
	}
	return n.notifier.Send(ctx, token, notification.Title, notification.Body, notification.Metadata)
}
