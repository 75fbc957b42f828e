package console_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/api"
	"github.com/quartermaster-am/quartermaster/internal/audit"
	"github.com/quartermaster-am/quartermaster/internal/auth"
	"github.com/quartermaster-am/quartermaster/internal/console"
	"github.com/quartermaster-am/quartermaster/internal/shared"
	"github.com/quartermaster-am/quartermaster/internal/view"
	_ "github.com/quartermaster-am/quartermaster/testing"
)

// fakeRemote is an in-memory department collection behind the wire
// endpoints the console drives.
type fakeRemote struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]map[string]any
	posts  []map[string]any
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{nextID: 1, rows: make(map[int64]map[string]any)}
}

func (f *fakeRemote) add(code, name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.rows[id] = map[string]any{"departmentID": id, "departmentCode": code, "departmentName": name}
	return id
}

func (f *fakeRemote) server() *httptest.Server {
	r := chi.NewRouter()
	r.Get("/Departments", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]map[string]any, 0, len(f.rows))
		for id := int64(1); id < f.nextID; id++ {
			if row, ok := f.rows[id]; ok {
				out = append(out, row)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	r.Post("/Departments", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		f.posts = append(f.posts, body)
		id := f.nextID
		f.nextID++
		body["departmentID"] = id
		f.rows[id] = body
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	})
	r.Get("/Departments/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		f.mu.Lock()
		row, ok := f.rows[id]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Department not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(row)
	})
	r.Delete("/Departments/bulk", func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			IDs []int64 `json:"ids"`
		}
		_ = json.NewDecoder(req.Body).Decode(&payload)
		f.mu.Lock()
		for _, id := range payload.IDs {
			delete(f.rows, id)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return httptest.NewServer(r)
}

type consoleEnv struct {
	router   http.Handler
	sessions *shared.SessionManager
	sess     *shared.Session
	remote   *fakeRemote
	audit    *recordingAudit
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []string
}

func (a *recordingAudit) Record(ctx context.Context, actor, action, entity string, entityID int64, meta map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, action+":"+entity)
	return nil
}

func (a *recordingAudit) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Entry, 0, len(a.entries))
	for i, action := range a.entries {
		out = append(out, audit.Entry{ID: int64(i + 1), Action: action})
	}
	return out, nil
}

func newConsoleEnv(t *testing.T) *consoleEnv {
	t.Helper()

	remote := newFakeRemote()
	srv := remote.server()
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")

	templates, err := view.NewEngine()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.NewClient(srv.URL, api.StaticToken(""), logger)
	services := api.NewServices(client)
	authSvc := auth.NewService(nil, nil, nil, nil, nil, []string{"Asset.Manage"}, logger)

	recorder := &recordingAudit{}
	handler := console.NewHandler(console.BuildDescriptors(client, services), templates, csrf, authSvc, recorder, services, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r)

	return &consoleEnv{router: r, sessions: sessions, sess: sess, remote: remote, audit: recorder}
}

func (env *consoleEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	return res
}

func (env *consoleEnv) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	env.router.ServeHTTP(res, req)
	return res
}

func TestListRendersRows(t *testing.T) {
	env := newConsoleEnv(t)
	env.remote.add("IT", "Information Technology")

	res := env.get(t, "/resources/departments")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Information Technology")
	require.Contains(t, res.Body.String(), "IT")
}

func TestCreateDepartmentAppearsInList(t *testing.T) {
	env := newConsoleEnv(t)

	res := env.post(t, "/resources/departments", url.Values{
		"departmentCode": {"FIN"},
		"departmentName": {"Finance"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/resources/departments", res.Header().Get("Location"))

	require.Len(t, env.remote.posts, 1)
	require.Equal(t, "FIN", env.remote.posts[0]["departmentCode"])
	require.Equal(t, "Finance", env.remote.posts[0]["departmentName"])

	list := env.get(t, "/resources/departments")
	require.Contains(t, list.Body.String(), "Finance")
	require.Contains(t, env.audit.entries, "create:department")
}

func TestCreateValidationBlocksRemoteCall(t *testing.T) {
	env := newConsoleEnv(t)

	res := env.post(t, "/resources/departments", url.Values{
		"departmentCode": {""},
		"departmentName": {"Finance"},
	})
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Department code is required")
	require.Empty(t, env.remote.posts)
}

func TestSelectionAndBulkDelete(t *testing.T) {
	env := newConsoleEnv(t)
	id1 := env.remote.add("IT", "Information Technology")
	env.remote.add("HR", "Human Resources")

	env.get(t, "/resources/departments")
	res := env.post(t, "/resources/departments/select", url.Values{"id": {strconv.FormatInt(id1, 10)}})
	require.Equal(t, http.StatusSeeOther, res.Code)

	list := env.get(t, "/resources/departments")
	require.Contains(t, list.Body.String(), "1 selected")

	res = env.post(t, "/resources/departments/bulk-delete", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)

	list = env.get(t, "/resources/departments")
	require.NotContains(t, list.Body.String(), "Information Technology")
	require.Contains(t, list.Body.String(), "Human Resources")
	require.Contains(t, env.audit.entries, "bulk-delete:department")
}

func TestEditFormPrefillsValues(t *testing.T) {
	env := newConsoleEnv(t)
	id := env.remote.add("IT", "Information Technology")

	res := env.get(t, "/resources/departments/"+strconv.FormatInt(id, 10)+"/edit")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `value="Information Technology"`)
}

func TestActivityFeedListsRecordedActions(t *testing.T) {
	env := newConsoleEnv(t)

	res := env.post(t, "/resources/departments", url.Values{
		"departmentCode": {"FIN"},
		"departmentName": {"Finance"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)

	feed := env.get(t, "/activity")
	require.Equal(t, http.StatusOK, feed.Code)
	require.Equal(t, "application/json", feed.Header().Get("Content-Type"))

	var entries []audit.Entry
	require.NoError(t, json.Unmarshal(feed.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "create:department", entries[0].Action)
}

func TestUnknownResourceIs404(t *testing.T) {
	env := newConsoleEnv(t)
	res := env.get(t, "/resources/widgets")
	require.Equal(t, http.StatusNotFound, res.Code)
}
