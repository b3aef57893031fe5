package natsx

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"chaters/logger"
)

// SubjectMessageStored carries one event per persisted chat message;
// the notify worker consumes it to fan out web push.
const SubjectMessageStored = "chaters.message.stored"

// MessageStored is the cross-process record of a persisted message.
// Nickname and chat name ride along so consumers need no extra reads.
type MessageStored struct {
	MessageID      int64  `json:"messageId"`
	ChatID         int64  `json:"chatId"`
	ChatKey        string `json:"chatKey"`
	ChatName       string `json:"chatName"`
	SenderID       int64  `json:"senderId"`
	SenderNickname string `json:"senderNickname"`
	Preview        string `json:"preview"`
}

// Connect dials the NATS server with reconnect left at client defaults.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return nc, nil
}

// PublishMessageStored emits the event; failures are reported to the
// caller, which treats notification as best effort.
func PublishMessageStored(nc *nats.Conn, ev *MessageStored) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	return errors.Wrap(nc.Publish(SubjectMessageStored, data), "publish event")
}

// SubscribeMessageStored invokes fn for every decoded event. Malformed
// payloads are logged and skipped.
func SubscribeMessageStored(nc *nats.Conn, fn func(*MessageStored)) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(SubjectMessageStored, func(msg *nats.Msg) {
		var ev MessageStored
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			logger.Warnf("drop malformed %s event: %v", SubjectMessageStored, err)
			return
		}
		fn(&ev)
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribe "+SubjectMessageStored)
	}
	return sub, nil
}
