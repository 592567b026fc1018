package workflow

import (
	"context"
	"log/slog"

	"vidredact/internal/logging"
)

// completeOrder tells the upstream the order is done and emails the returned
// recipient. Failures are logged; the order stays DONE.
func (m *Manager) completeOrder(ctx context.Context, logger *slog.Logger, workID string) {
	recipient, err := m.notifier.Complete(ctx, workID)
	if err != nil {
		logging.WarnWithContext(logger, "completion callback failed", "completion_callback_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check callbacks.base_url and the upstream service"),
			logging.String(logging.FieldImpact, "upstream is not told the order finished"),
		)
		return
	}
	if recipient == nil {
		logger.Info("completion acknowledged; no email requested",
			logging.String(logging.FieldEventType, "completion_acknowledged"),
		)
		return
	}
	if err := m.notifier.SendEmail(ctx, *recipient); err != nil {
		logging.WarnWithContext(logger, "completion email failed", "completion_email_failed",
			logging.Error(err),
			logging.String("email", recipient.Email),
			logging.String(logging.FieldImpact, "recipient is not notified"),
		)
		return
	}
	logger.Info("completion email requested",
		logging.String("email", recipient.Email),
		logging.String(logging.FieldEventType, "completion_email_sent"),
	)
}
