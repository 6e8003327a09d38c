package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sony/gobreaker"

	"github.com/itsthekvd/kushlapp-engine/internal/config"
	"github.com/itsthekvd/kushlapp-engine/internal/pushsubscription"
)

type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers web-push notifications. Deliveries run through a circuit
// breaker so a dead push gateway does not stall every task mutation behind
// slow HTTP timeouts.
type Sender struct {
	vapidEnv *config.VAPIDEnv
	repo     pushsubscription.Repository
	breaker  *gobreaker.CircuitBreaker
}

func NewSender(vapidEnv *config.VAPIDEnv, repo pushsubscription.Repository) *Sender {
	return &Sender{
		vapidEnv: vapidEnv,
		repo:     repo,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "webpush",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("push notification circuit state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// SendToUser delivers payload to every subscription registered by userID.
func (s *Sender) SendToUser(ctx context.Context, userID string, payload *Payload) {
	if s.vapidEnv.VAPIDPrivateKey == "" || s.vapidEnv.VAPIDPublicKey == "" {
		slog.Warn("push notification: VAPID keys not configured, skipping")
		return
	}

	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		slog.Error("push notification: failed to list subscriptions", "user_id", userID, "error", err)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("push notification: failed to marshal payload", "error", err)
		return
	}

	for _, sub := range subs {
		s.sendToSubscription(ctx, sub, data)
	}
}

func (s *Sender) sendToSubscription(ctx context.Context, sub *pushsubscription.Subscription, data []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}

	result, err := s.breaker.Execute(func() (any, error) {
		resp, err := webpush.SendNotification(data, wpSub, &webpush.Options{
			VAPIDPublicKey:  s.vapidEnv.VAPIDPublicKey,
			VAPIDPrivateKey: s.vapidEnv.VAPIDPrivateKey,
			Subscriber:      s.vapidEnv.VAPIDContact,
			TTL:             86400,
		})
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return resp.StatusCode, nil
	})
	if err != nil {
		slog.Error("push notification: failed to send", "endpoint", sub.Endpoint, "error", err)
		return
	}

	statusCode := result.(int)
	if statusCode == http.StatusGone {
		slog.Info("push notification: subscription expired, removing", "endpoint", sub.Endpoint)
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			slog.Error("push notification: failed to delete expired subscription", "id", sub.ID, "error", err)
		}
		return
	}
	if statusCode >= 400 {
		slog.Warn("push notification: unexpected status", "endpoint", sub.Endpoint, "status", statusCode)
	}
}
