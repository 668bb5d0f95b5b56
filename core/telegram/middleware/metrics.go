package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

// UpdateCounts reports how many updates of each kind were received.
type UpdateCounts struct {
	Messages  uint64 `json:"messages"`
	Callbacks uint64 `json:"callbacks"`
	Files     uint64 `json:"files"`
	Other     uint64 `json:"other"`
}

var counts struct {
	messages, callbacks, files, other atomic.Uint64
}

// Counts returns the counters since start.
func Counts() UpdateCounts {
	return UpdateCounts{
		Messages:  counts.messages.Load(),
		Callbacks: counts.callbacks.Load(),
		Files:     counts.files.Load(),
		Other:     counts.other.Load(),
	}
}

// MessageMetricsMiddleware counts inbound updates by kind.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		switch {
		case upd.Callback != nil:
			counts.callbacks.Add(1)
		case upd.Message != nil && (upd.Message.Document != nil || upd.Message.Photo != nil):
			counts.files.Add(1)
		case upd.Message != nil:
			counts.messages.Add(1)
		default:
			counts.other.Add(1)
		}
		return next(c)
	}
}
