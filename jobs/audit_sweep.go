package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quartermaster-am/quartermaster/internal/audit"
)

// AuditSweepJob prunes audit entries older than the retention window.
type AuditSweepJob struct {
	Audit     *audit.Logger
	Logger    *slog.Logger
	Retention time.Duration
}

// NewAuditSweepJob initialises the sweep handler.
func NewAuditSweepJob(auditLogger *audit.Logger, retention time.Duration, logger *slog.Logger) *AuditSweepJob {
	return &AuditSweepJob{Audit: auditLogger, Logger: logger, Retention: retention}
}

// Handle executes one sweep.
func (j *AuditSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Audit == nil {
		return errors.New("audit sweep: handler not configured")
	}
	var payload AuditSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}
	removed, err := j.Audit.Sweep(ctx, retention)
	if err != nil {
		return err
	}
	j.Logger.Info("audit sweep finished", "removed", removed, "retention", retention.String())
	return nil
}
