package notification

import (
	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/pkg/logger"
)

// LogNotifier is the always-available fallback core.Notifier: it writes
// every notification through the structured logger instead of an external
// channel, so the engine runs unattended when no Telegram token is
// configured.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier wraps log as a Notifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs message at info level.
func (n *LogNotifier) Notify(message string) {
	n.log.Info(message)
}

// OnEvent logs a lifecycle event.
func (n *LogNotifier) OnEvent(event core.Event) {
	payload, ok := event.Payload.(core.PositionEventPayload)
	if !ok {
		n.log.WithField("type", event.Type).WithField("symbol", event.Symbol).Info("event")
		return
	}
	n.log.WithField("type", event.Type).
		WithField("symbol", event.Symbol).
		WithField("side", payload.Position.Side).
		WithField("size", payload.Position.Size).
		WithField("price", payload.Position.CurrentPrice).
		Info(eventTitle(event.Type))
}

// OnError logs err.
func (n *LogNotifier) OnError(err error) {
	n.log.WithError(err).Error("notification error")
}

var _ core.Notifier = (*LogNotifier)(nil)
