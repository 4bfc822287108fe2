package audit

import (
	"context"
	"log/slog"

	"github.com/plateful/tenantcore/internal/domain"
)

// StdoutPublisher writes audit events to the structured log. Used when no
// Kafka brokers are configured (local development, single-node deploys).
type StdoutPublisher struct {
	logger *slog.Logger
}

func NewStdoutPublisher(logger *slog.Logger) *StdoutPublisher {
	return &StdoutPublisher{logger: logger.With("component", "audit")}
}

func (p *StdoutPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	p.logger.Info("audit event",
		"kind", event.Kind,
		"tenant_id", event.TenantID,
		"caller_tenant_id", event.CallerID,
		"user_id", event.UserID,
		"detail", event.Detail,
		"occurred_at", event.OccurredAt,
	)
	return nil
}
