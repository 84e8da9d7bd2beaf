package worker

import (
	"context"
	"log/slog"

	audit "bloodlink/pkg/platform/audit"
)

// Worker drains audit events from a channel into a store. Persist failures are
// logged and the worker keeps going; audit never blocks the lifecycle.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
	onFail func()
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, onFail func()) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger, onFail: onFail}
}

// Run persists events until the inbox is closed. The context only bounds
// individual writes so Close can drain what is already buffered.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil {
			if w.onFail != nil {
				w.onFail()
			}
			if w.logger != nil {
				w.logger.ErrorContext(ctx, "audit event persist failed",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
