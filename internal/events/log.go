package events

import (
	"gem-auction/utils"
)

// LogDispatcher writes events to the structured log. It is the development
// fallback when no NATS server is configured.
type LogDispatcher struct{}

// NewLogDispatcher creates a log-only dispatcher.
func NewLogDispatcher() *LogDispatcher {
	return &LogDispatcher{}
}

// Dispatch logs the event and always succeeds.
func (d *LogDispatcher) Dispatch(evt Event) error {
	utils.Info("auction event", map[string]any{
		"type":       string(evt.Type),
		"auction_id": evt.AuctionID,
		"channels":   evt.Channels,
		"payload":    evt.Payload,
	})
	return nil
}
