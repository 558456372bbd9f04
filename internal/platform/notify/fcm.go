// Package notify delivers order status notifications through Firebase Cloud
// Messaging.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
	"golang.org/x/text/language"
)

const defaultSendTimeout = 5 * time.Second

var supportedLocales = language.NewMatcher([]language.Tag{
	language.English,
	language.Hindi,
})

// MessagingClient is the subset of the FCM client used by the notifier.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMNotifier sends push notifications to device tokens.
type FCMNotifier struct {
	client  MessagingClient
	timeout time.Duration
}

// Option customises FCMNotifier construction.
type Option func(*FCMNotifier)

// WithSendTimeout bounds each send call.
func WithSendTimeout(d time.Duration) Option {
	return func(n *FCMNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// NewFCMNotifier constructs a notifier over the given messaging client.
func NewFCMNotifier(client MessagingClient, opts ...Option) (*FCMNotifier, error) {
	if client == nil {
		return nil, errors.New("fcm notifier: messaging client is required")
	}
	n := &FCMNotifier{client: client, timeout: defaultSendTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n, nil
}

// Send pushes a notification to the recipient token. Returns false when the
// token is empty or the send fails; callers treat delivery as best-effort.
func (n *FCMNotifier) Send(ctx context.Context, token, title, body string, metadata map[string]string) (bool, error) {
	if n == nil || n.client == nil {
		return false, errors.New("fcm notifier: not initialised")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return false, errors.New("fcm notifier: recipient token is required")
	}

	data := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		data[k] = v
	}
	if locale, ok := data["locale"]; ok {
		data["locale"] = NormaliseLocale(locale)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	_, err := n.client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// NormaliseLocale maps a raw locale hint onto the closest supported language
// tag, defaulting to English.
func NormaliseLocale(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return language.English.String()
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return language.English.String()
	}
	matched, _, _ := supportedLocales.Match(tag)
	base, _ := matched.Base()
	return base.String()
}
