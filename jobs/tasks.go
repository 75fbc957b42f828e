// Package jobs contains the background task definitions and the Asynq
// worker plumbing shared by the console and the worker binary.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDirectoryRefresh refreshes cached directory data for accounts.
	TaskDirectoryRefresh = "directory:refresh"
	// TaskAuditSweep prunes audit entries past the retention window.
	TaskAuditSweep = "audit:sweep"
)

// DirectoryRefreshPayload selects which account to refresh. An empty
// AccountID refreshes every tracked account.
type DirectoryRefreshPayload struct {
	AccountID string `json:"accountID"`
}

// NewDirectoryRefreshTask constructs a directory refresh task.
func NewDirectoryRefreshTask(accountID string) (*asynq.Task, error) {
	data, err := json.Marshal(DirectoryRefreshPayload{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDirectoryRefresh, data), nil
}

// AuditSweepPayload carries the retention window in hours. Zero falls
// back to the configured default.
type AuditSweepPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// NewAuditSweepTask constructs an audit sweep task.
func NewAuditSweepTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditSweepPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditSweep, data), nil
}
