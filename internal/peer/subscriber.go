package peer

import (
	"github.com/coreflux/statsaggd/internal/codec"
	"github.com/coreflux/statsaggd/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// subPendingMsgLimit bounds how many undelivered messages NATS buffers for
// our subscription before dropping newly arriving ones. Sized generously relative to
// pendingMsgLimit on the publish side since one subscriber fans in from
// potentially many peers.
const subPendingMsgLimit = 1024

// Subscriber listens on subject and hands every decoded batch to the event
// loop as a KindPeerBatch event. Decode failures are logged and dropped,
// never forwarded: a corrupt remote frame must not reach Buckets.
type Subscriber struct {
	conn *nats.Conn
	sub  *nats.Subscription
	log  *logrus.Entry
}

// NewSubscriber connects to url and subscribes to subject, forwarding every
// successfully decoded batch onto events.
func NewSubscriber(url, subject string, out chan<- events.Event, log *logrus.Entry) (*Subscriber, error) {
	log = log.WithField("component", "peer.subscriber")

	conn, err := nats.Connect(url, nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}

	s := &Subscriber{conn: conn, log: log}

	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		batch, err := codec.Decode(msg.Data)
		if err != nil {
			log.WithError(err).Warn("dropped undecodable peer batch")
			return
		}
		out <- events.NewPeerBatch(batch)
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := sub.SetPendingLimits(subPendingMsgLimit, -1); err != nil {
		log.WithError(err).Warn("unable to set subscription pending limits")
	}
	s.sub = sub

	return s, nil
}

// Close unsubscribes and closes the underlying connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	s.conn.Close()
}
