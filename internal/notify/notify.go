// Package notify formats doorbell events into human-readable alerts and
// delivers them through a single outbound channel (Pushover or Twilio).
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/ypk/ringwatch/internal/ring"
)

// Priority levels, Pushover's scale. Twilio ignores them.
const (
	PriorityLow    = -1
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Message is one alert ready for delivery.
type Message struct {
	Title    string
	Body     string
	Priority int

	// ImagePath is an optional attachment; channels that cannot carry
	// images ignore it.
	ImagePath string
}

// Notifier delivers a message through one external channel. Implementations
// must be safe to call from the polling loop; errors are logged by the
// caller and never retried.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

const timeLayout = "2006-01-02 15:04:05"

// Format builds the per-kind notification for an event.
func Format(deviceName, kind string, createdAt time.Time) Message {
	when := createdAt.Format(timeLayout)

	switch kind {
	case ring.KindDing:
		return Message{
			Title:    "Doorbell: " + deviceName,
			Body:     "Doorbell pressed\nTime: " + when,
			Priority: PriorityHigh,
		}
	case ring.KindMotion:
		return Message{
			Title:    "Motion: " + deviceName,
			Body:     "Motion detected\nTime: " + when,
			Priority: PriorityNormal,
		}
	case ring.KindOnDemand:
		return Message{
			Title:    "Live View: " + deviceName,
			Body:     "Live view started\nTime: " + when,
			Priority: PriorityNormal,
		}
	default:
		return Message{
			Title:    "Ring: " + deviceName,
			Body:     fmt.Sprintf("%s event\nTime: %s", kind, when),
			Priority: PriorityNormal,
		}
	}
}
