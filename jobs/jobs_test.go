package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/audit"
	"github.com/quartermaster-am/quartermaster/internal/identity"
	"github.com/quartermaster-am/quartermaster/jobs"
	_ "github.com/quartermaster-am/quartermaster/testing"
)

type stubProvider struct{}

func (stubProvider) AcquireSilent(ctx context.Context, accountID string, scopes []string) (*identity.TokenResult, error) {
	return &identity.TokenResult{AccessToken: "graph-token"}, nil
}

func (stubProvider) AcquireInteractive(ctx context.Context, accountID string, scopes []string) (*identity.TokenResult, error) {
	return nil, errors.New("interactive not supported in background jobs")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func graphServer(t *testing.T, profileHits *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		*profileHits++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":                "acct-1",
			"displayName":       "Dana Reeve",
			"userPrincipalName": "dana@example.edu",
			"jobTitle":          "Facilities manager",
		})
	})
	mux.HandleFunc("/me/photo/$value", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/me/memberOf", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{{"id": "g-1", "displayName": "Admins"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newCache(t *testing.T) *identity.DirectoryCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return identity.NewDirectoryCache(client, time.Hour)
}

func TestDirectoryRefreshSingleAccount(t *testing.T) {
	var hits int
	srv := graphServer(t, &hits)
	cache := newCache(t)
	directory := identity.NewDirectory(srv.URL, stubProvider{}, discardLogger())
	job := jobs.NewDirectoryRefreshJob(directory, cache, discardLogger())

	task, err := jobs.NewDirectoryRefreshTask("acct-1")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 1, hits)

	bundle, err := cache.Get(context.Background(), "acct-1")
	require.NoError(t, err)
	require.NotNil(t, bundle)
	require.Equal(t, "Dana Reeve", bundle.Profile.DisplayName)
	require.Equal(t, "Facilities manager", bundle.Profile.JobTitle)
	require.False(t, bundle.HasPhoto)
	require.Len(t, bundle.Groups, 1)
	require.Equal(t, "Admins", bundle.Groups[0].DisplayName)
}

func TestDirectoryRefreshCoversTrackedAccounts(t *testing.T) {
	var hits int
	srv := graphServer(t, &hits)
	cache := newCache(t)
	for _, id := range []string{"acct-1", "acct-2"} {
		require.NoError(t, cache.Put(context.Background(), id, identity.Bundle{}))
	}
	directory := identity.NewDirectory(srv.URL, stubProvider{}, discardLogger())
	job := jobs.NewDirectoryRefreshJob(directory, cache, discardLogger())

	task, err := jobs.NewDirectoryRefreshTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 2, hits)
}

func TestDirectoryRefreshBadPayloadSkipsRetry(t *testing.T) {
	var hits int
	srv := graphServer(t, &hits)
	cache := newCache(t)
	directory := identity.NewDirectory(srv.URL, stubProvider{}, discardLogger())
	job := jobs.NewDirectoryRefreshJob(directory, cache, discardLogger())

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskDirectoryRefresh, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, hits)
}

func TestAuditSweepBadPayloadSkipsRetry(t *testing.T) {
	job := jobs.NewAuditSweepJob(audit.NewLogger(nil, discardLogger()), 24*time.Hour, discardLogger())

	err := job.Handle(context.Background(), asynq.NewTask(jobs.TaskAuditSweep, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAuditSweepZeroRetentionSkipsRetry(t *testing.T) {
	job := jobs.NewAuditSweepJob(audit.NewLogger(nil, discardLogger()), 0, discardLogger())

	task, err := jobs.NewAuditSweepTask(0)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
