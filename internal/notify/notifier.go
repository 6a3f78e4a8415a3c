package notify

import (
	"context"
	"log"
	"time"

	"der-explorer/internal/polling"
)

// CompletionMessage reports entities that finished processing upstream.
type CompletionMessage struct {
	Kind        polling.Kind     `json:"kind"`
	Entities    []polling.Entity `json:"entities"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, msg CompletionMessage) error
}

// Hook adapts a Notifier to the registry's completion hook. Failures are
// logged and otherwise ignored so they never affect polling.
func Hook(n Notifier, logger *log.Logger) polling.CompletionHook {
	return func(ctx context.Context, kind polling.Kind, completed []polling.Entity) {
		if n == nil {
			return
		}
		msg := CompletionMessage{Kind: kind, Entities: completed, CompletedAt: time.Now().UTC()}
		if err := n.Notify(ctx, msg); err != nil && logger != nil {
			logger.Printf("completion notify error: kind=%s entities=%d err=%v", kind, len(completed), err)
		}
	}
}
