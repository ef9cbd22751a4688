package apiclient

import (
	"go.uber.org/zap"
)

// Variant of a user-facing notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient message for the user (a toast).
type Notification struct {
	Title       string
	Description string
	Variant     Variant
	Status      int
}

// Notifier receives user-visible failures. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the logger; used where there is no UI.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(msg Notification) {
	n.logger.Warn(msg.Title,
		zap.String("description", msg.Description),
		zap.String("variant", string(msg.Variant)),
		zap.Int("status", msg.Status),
	)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
