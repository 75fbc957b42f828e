package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quartermaster-am/quartermaster/internal/identity"
)

// DirectoryRefreshJob re-fetches directory data for signed-in accounts so
// the cached profile, photo flag and group memberships stay fresh without
// blocking a request.
type DirectoryRefreshJob struct {
	Directory *identity.Directory
	Cache     *identity.DirectoryCache
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewDirectoryRefreshJob initialises the refresh handler.
func NewDirectoryRefreshJob(directory *identity.Directory, cache *identity.DirectoryCache, logger *slog.Logger) *DirectoryRefreshJob {
	return &DirectoryRefreshJob{
		Directory: directory,
		Cache:     cache,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes a directory refresh.
func (j *DirectoryRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Directory == nil || j.Cache == nil {
		return errors.New("directory refresh: handler not configured")
	}
	var payload DirectoryRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	accounts := []string{payload.AccountID}
	if payload.AccountID == "" {
		tracked, err := j.Cache.TrackedAccounts(ctx)
		if err != nil {
			return err
		}
		accounts = tracked
	}

	var failed int
	for _, accountID := range accounts {
		if err := j.refreshOne(ctx, accountID); err != nil {
			failed++
			j.Logger.Warn("directory refresh failed", "account", accountID, "error", err)
		}
	}
	j.Logger.Info("directory refresh finished", "accounts", len(accounts), "failed", failed)
	if failed == len(accounts) && len(accounts) > 0 {
		return errors.New("directory refresh: every account failed")
	}
	return nil
}

func (j *DirectoryRefreshJob) refreshOne(ctx context.Context, accountID string) error {
	profile, err := j.Directory.Profile(ctx, accountID)
	if err != nil {
		return err
	}
	bundle := identity.Bundle{Profile: profile, FetchedAt: j.clock()}
	if photo, err := j.Directory.Photo(ctx, accountID); err == nil {
		bundle.HasPhoto = len(photo) > 0
	}
	if groups, err := j.Directory.Groups(ctx, accountID); err == nil {
		bundle.Groups = groups
	}
	return j.Cache.Put(ctx, accountID, bundle)
}
