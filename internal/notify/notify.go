package notify

import (
	"go.uber.org/zap"

	"seckill-client/internal/engine"
	"seckill-client/internal/util"
)

// LogNotifier surfaces user notices through the structured log. It is the
// default delivery channel for terminal clients.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

func (n *LogNotifier) Notify(message string, severity engine.Severity) {
	switch severity {
	case engine.SeverityError:
		n.logger.Error(message)
	case engine.SeverityWarn:
		n.logger.Warn(message)
	default:
		n.logger.Info(message)
	}
}

// Gated wraps a notifier behind a permission check, mirroring notification
// permission on a browser client: without permission, delivery degrades to a
// silent no-op, never an error.
type Gated struct {
	inner     engine.Notifier
	permitted func() bool
}

func NewGated(inner engine.Notifier, permitted func() bool) *Gated {
	return &Gated{inner: inner, permitted: permitted}
}

func (g *Gated) Notify(message string, severity engine.Severity) {
	if g.permitted == nil || !g.permitted() {
		return
	}
	g.inner.Notify(message, severity)
}
