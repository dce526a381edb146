package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSDispatcher publishes events as JSON on per-auction subjects
// (auction.<type>.<auctionID>), leaving fan-out to the chat-platform
// broadcaster that subscribes downstream.
type NATSDispatcher struct {
	conn *nats.Conn
}

// NewNATSDispatcher connects to the NATS server at natsURL.
func NewNATSDispatcher(natsURL string) (*NATSDispatcher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("gem-auction-engine"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSDispatcher{conn: conn}, nil
}

// Dispatch publishes the event. The engine's state transition is already
// durable when this runs; an error here is an at-least-once delivery gap
// for the reconciliation pass.
func (d *NATSDispatcher) Dispatch(evt Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s event for auction %s: %w", evt.Type, evt.AuctionID, err)
	}

	subject := fmt.Sprintf("auction.%s.%s", evt.Type, evt.AuctionID)
	if err := d.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s event for auction %s: %w", evt.Type, evt.AuctionID, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (d *NATSDispatcher) Close() {
	d.conn.Close()
}
