package push

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"chaters/logger"
	"chaters/service/natsx"
	"chaters/store"
)

// presenceLookup matches the redis presence mirror; kept as an
// interface so worker tests can fake liveness.
type presenceLookup interface {
	Lookup(ctx context.Context, userID int64) (gatewayID string, online bool, err error)
}

// Worker turns stored-message events into web push notifications for
// members who have no live connection anywhere.
type Worker struct {
	store    *store.Store
	sender   *Sender
	presence presenceLookup
}

func NewWorker(st *store.Store, sender *Sender, presence presenceLookup) *Worker {
	return &Worker{store: st, sender: sender, presence: presence}
}

// Run subscribes to stored-message events and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context, nc *nats.Conn) error {
	if !w.sender.Enabled() {
		logger.Info("web push disabled, notify worker idle")
		<-ctx.Done()
		return nil
	}
	sub, err := natsx.SubscribeMessageStored(nc, func(ev *natsx.MessageStored) {
		w.handle(ctx, ev)
	})
	if err != nil {
		return errors.Wrap(err, "start notify worker")
	}
	defer func() { _ = sub.Unsubscribe() }()

	<-ctx.Done()
	return nil
}

func (w *Worker) handle(ctx context.Context, ev *natsx.MessageStored) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	members, err := w.store.Members(ctx, ev.ChatID)
	if err != nil {
		logger.Errorf("notify: list members of chat %d: %v", ev.ChatID, err)
		return
	}

	n := &Notification{
		Title: "Chaters",
		Body:  ev.ChatName + " | " + ev.SenderNickname,
		URL:   "/?chat=" + ev.ChatKey,
	}

	for _, m := range members {
		if m.ID == ev.SenderID {
			continue
		}
		if w.presence != nil {
			if _, online, err := w.presence.Lookup(ctx, m.ID); err == nil && online {
				continue
			}
		}
		w.notifyUser(ctx, m.ID, n)
	}
}

func (w *Worker) notifyUser(ctx context.Context, userID int64, n *Notification) {
	subs, err := w.store.PushSubscriptionsForUser(ctx, userID)
	if err != nil {
		logger.Errorf("notify: list subscriptions for user %d: %v", userID, err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		err := w.sender.Send(ctx, sub, n)
		if errors.Is(err, ErrEndpointGone) {
			if derr := w.store.DeletePushEndpoint(ctx, sub.Endpoint); derr != nil {
				logger.Warnf("notify: prune dead endpoint: %v", derr)
			}
			continue
		}
		if err != nil {
			logger.Warnf("notify: push to user %d failed: %v", userID, err)
		}
	}
}
