package signalengine

import (
	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/pkg/logger"
)

// Option is a functional option for configuring an Engine before Start.
type Option func(*Engine)

// WithLogLevel sets the log level on the default logger, e.g.
// logger.DebugLevel, logger.InfoLevel, logger.WarnLevel.
func WithLogLevel(level logger.Level) Option {
	return func(e *Engine) {
		DefaultLog.SetLevel(level)
	}
}

// WithLogger overrides the engine's logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithNotifier registers an additional notification capability alongside
// the configured one.
func WithNotifier(notifier core.Notifier) Option {
	return func(e *Engine) {
		e.notifiers = append(e.notifiers, notifier)
	}
}

// WithExchange overrides the exchange adapter built from config (useful for
// tests and backtesting harnesses wired to internal/exchange.Simulated).
func WithExchange(exchange core.Exchange) Option {
	return func(e *Engine) {
		e.exchange = exchange
	}
}

// WithModelAdapter overrides the external directional-model capability.
func WithModelAdapter(model core.ModelAdapter) Option {
	return func(e *Engine) {
		e.model = model
	}
}

// WithSentimentAdapter overrides the Fear & Greed Index capability.
func WithSentimentAdapter(sentiment core.SentimentAdapter) Option {
	return func(e *Engine) {
		e.sentiment = sentiment
	}
}
