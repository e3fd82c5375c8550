package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// bookingSubjectPrefix is the only namespace this queue carries. Booking
// lifecycle events are the sole messaging traffic in the system, so a subject
// outside it is a programming error, not a routing decision.
const bookingSubjectPrefix = "booking."

const (
	connectName   = "volthost-api"
	reconnectWait = 2 * time.Second
)

type natsQueue struct {
	conn *nats.Conn
	subs []*nats.Subscription
	log  *zap.Logger
}

// NewNATSQueue connects to NATS with reconnect enabled; booking events are
// fire-and-forget, so a dropped connection is logged and retried forever
// rather than failing requests.
func NewNATSQueue(url string, log *zap.Logger) (MessageQueue, error) {
	nc, err := nats.Connect(url,
		nats.Name(connectName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats connection lost", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats connection restored", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	log.Info("connected to nats", zap.String("url", url))
	return &natsQueue{
		conn: nc,
		log:  log,
	}, nil
}

func (q *natsQueue) Publish(subject string, data []byte) error {
	if !isBookingSubject(subject) {
		return fmt.Errorf("subject %q is outside the booking event namespace", subject)
	}
	return q.conn.Publish(subject, data)
}

func (q *natsQueue) Subscribe(subject string, handler func(data []byte) error) error {
	if !isBookingSubject(subject) {
		return fmt.Errorf("subject %q is outside the booking event namespace", subject)
	}

	sub, err := q.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.log.Error("booking event handler failed",
				zap.String("subject", subject),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return err
	}

	q.subs = append(q.subs, sub)
	return nil
}

// Close drains the connection so in-flight booking events are delivered
// before the subscriptions go away.
func (q *natsQueue) Close() error {
	for _, sub := range q.subs {
		if err := sub.Unsubscribe(); err != nil {
			q.log.Warn("failed to unsubscribe", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}
	return q.conn.Drain()
}

// isBookingSubject accepts booking.<event> with a non-empty event name.
func isBookingSubject(subject string) bool {
	event, ok := strings.CutPrefix(subject, bookingSubjectPrefix)
	return ok && event != ""
}
