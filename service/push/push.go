package push

import (
	"context"
	"encoding/json"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"

	"chaters/logger"
	"chaters/store"
)

// Sender delivers web push notifications signed with the service's
// VAPID keys. A zero-key sender is disabled and drops everything.
type Sender struct {
	subscriber string
	publicKey  string
	privateKey string
}

func NewSender(subscriber, publicKey, privateKey string) *Sender {
	return &Sender{subscriber: subscriber, publicKey: publicKey, privateKey: privateKey}
}

// Enabled reports whether VAPID keys were configured.
func (s *Sender) Enabled() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// PublicKey exposes the VAPID public key for browser subscription.
func (s *Sender) PublicKey() string { return s.publicKey }

// Notification is the payload the service worker renders.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// ErrEndpointGone marks a subscription the push service no longer
// accepts; the caller should delete it.
var ErrEndpointGone = errors.New("push endpoint gone")

// Send pushes one notification to one subscription.
func (s *Sender) Send(ctx context.Context, sub *store.PushSubscription, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	resp, err := webpush.SendNotification(payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             60,
	})
	if err != nil {
		return errors.Wrap(err, "send push")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return ErrEndpointGone
	}
	if resp.StatusCode >= 300 {
		logger.Warnf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}
