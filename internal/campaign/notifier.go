package campaign

import "voice-campaigns-go/internal/logger"

// Notifier surfaces transient, user-visible messages. The dashboard renders
// these as toasts; the default implementation just logs them.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

type logNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) Notifier {
	return &logNotifier{log: log.WithComponent("notify")}
}

func (n *logNotifier) Info(msg string)    { n.log.Info(msg) }
func (n *logNotifier) Success(msg string) { n.log.Info(msg) }
func (n *logNotifier) Error(msg string)   { n.log.Warn(msg) }
