package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/api"
	_ "github.com/quartermaster-am/quartermaster/testing"
)

// fakeAssetAPI is an in-memory stand-in for the remote asset service,
// covering the department collection and the bulk delete endpoint.
type fakeAssetAPI struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]api.Department
}

func newFakeAssetAPI() *fakeAssetAPI {
	return &fakeAssetAPI{nextID: 1, rows: make(map[int64]api.Department)}
}

func (f *fakeAssetAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Get("/Departments", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := make([]api.Department, 0, len(f.rows))
		for _, d := range f.rows {
			out = append(out, d)
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	r.Post("/Departments", func(w http.ResponseWriter, req *http.Request) {
		var d api.Department
		if err := json.NewDecoder(req.Body).Decode(&d); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "malformed body"})
			return
		}
		f.mu.Lock()
		d.DepartmentID = f.nextID
		f.nextID++
		f.rows[d.DepartmentID] = d
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(d)
	})
	r.Get("/Departments/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		f.mu.Lock()
		d, ok := f.rows[id]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Department not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(d)
	})
	r.Delete("/Departments/bulk", func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			IDs []int64 `json:"ids"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		for _, id := range payload.IDs {
			delete(f.rows, id)
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	r.Delete("/Departments/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		f.mu.Lock()
		delete(f.rows, id)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func TestDepartmentCreateThenList(t *testing.T) {
	fake := newFakeAssetAPI()
	srv := httptest.NewServer(fake.router())
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	svc := api.NewDepartmentService(client)
	ctx := context.Background()

	created, err := svc.Create(ctx, api.Department{DepartmentCode: "IT", DepartmentName: "Information Technology"})
	require.NoError(t, err)
	require.NotZero(t, created.DepartmentID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "IT", list[0].DepartmentCode)
	require.Equal(t, "Information Technology", list[0].DepartmentName)
}

func TestResourceGetNotFound(t *testing.T) {
	fake := newFakeAssetAPI()
	srv := httptest.NewServer(fake.router())
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	svc := api.NewDepartmentService(client)

	_, err := svc.Get(context.Background(), 42)
	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Department not found", apiErr.Message)
}

func TestResourceBulkDeleteSendsIDs(t *testing.T) {
	fake := newFakeAssetAPI()
	srv := httptest.NewServer(fake.router())
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	svc := api.NewDepartmentService(client)
	ctx := context.Background()

	for _, code := range []string{"IT", "HR", "FIN"} {
		_, err := svc.Create(ctx, api.Department{DepartmentCode: code, DepartmentName: code})
		require.NoError(t, err)
	}

	require.NoError(t, svc.BulkDelete(ctx, []int64{1, 3}))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(2), list[0].DepartmentID)
}

func TestAssetByCodeAndRoomRelations(t *testing.T) {
	paths := make([]string, 0, 3)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/Assets/by-code/PRJ-001"):
			_ = json.NewEncoder(w).Encode(api.Asset{AssetID: 3, AssetCode: "PRJ-001"})
		case strings.HasSuffix(r.URL.Path, "/Departments/5/rooms"):
			_ = json.NewEncoder(w).Encode([]api.Room{{RoomID: 9, RoomName: "Lab 1", DepartmentID: 5}})
		case strings.HasSuffix(r.URL.Path, "/Handovers/by-room/9"):
			_ = json.NewEncoder(w).Encode([]api.Handover{{HandoverID: 4, RoomID: 9}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	svcs := api.NewServices(client)
	ctx := context.Background()

	asset, err := svcs.Assets.ByCode(ctx, "PRJ-001")
	require.NoError(t, err)
	require.Equal(t, int64(3), asset.AssetID)

	rooms, err := svcs.Departments.Rooms(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, "Lab 1", rooms[0].RoomName)

	handovers, err := svcs.Handovers.ByRoom(ctx, 9)
	require.NoError(t, err)
	require.Len(t, handovers, 1)
	require.Equal(t, int64(4), handovers[0].HandoverID)

	require.Len(t, paths, 3)
}

func TestAssetQuantityAdjustPayload(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(api.Asset{AssetID: 7, Quantity: 12})
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	svc := api.NewAssetService(client)

	asset, err := svc.AdjustQuantity(context.Background(), 7, -3)
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, gotMethod)
	require.True(t, strings.HasSuffix(gotPath, "/Assets/7/quantity"))
	require.Equal(t, -3, gotBody["quantityChange"])
	require.Equal(t, 12, asset.Quantity)
}
