package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quartermaster-am/quartermaster/internal/api"
	_ "github.com/quartermaster-am/quartermaster/testing"
)

func TestRequestInjectsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken("tok-123"), nil)
	_, err := client.Request(context.Background(), http.MethodGet, "/Assets", nil)
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", gotAuth)
}

func TestRequestWithoutTokenOmitsHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	_, err := client.Request(context.Background(), http.MethodGet, "/Assets", nil)
	require.NoError(t, err)
	require.False(t, hasAuth, "empty token must not produce an Authorization header")
}

func TestRequestNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	raw, err := client.Request(context.Background(), http.MethodDelete, "/Assets/1", nil)
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestErrorMessagePriority(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail wins", `{"detail":"Asset not found","message":"ignored","title":"ignored"}`, "Asset not found"},
		{"message next", `{"message":"Cannot delete","title":"ignored"}`, "Cannot delete"},
		{"title next", `{"title":"Bad Request"}`, "Bad Request"},
		{"status text fallback", `{}`, "Not Found"},
		{"unparseable body", `<html>boom</html>`, "Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := api.NewClient(srv.URL, api.StaticToken(""), nil)
			_, err := client.Request(context.Background(), http.MethodGet, "/Assets/99", nil)
			require.Error(t, err)

			var apiErr *api.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, http.StatusNotFound, apiErr.Status)
			require.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestTransportErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	_, err := client.Request(context.Background(), http.MethodGet, "/Assets", nil)
	require.Error(t, err)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Zero(t, apiErr.Status)
	require.NotNil(t, errors.Unwrap(apiErr))
}

func TestTokenFailureProceedsWithoutHeader(t *testing.T) {
	var hasAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, failingTokens{}, nil)
	_, err := client.Request(context.Background(), http.MethodGet, "/Assets", nil)
	require.NoError(t, err)
	require.False(t, hasAuth)
}

type failingTokens struct{}

func (failingTokens) Token(ctx context.Context) (string, error) {
	return "", errors.New("no account")
}

func TestRequestMarshalsBody(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"assetID":1}`))
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, api.StaticToken(""), nil)
	raw, err := client.Request(context.Background(), http.MethodPost, "/Assets", map[string]any{"assetName": "Projector"})
	require.NoError(t, err)
	require.Equal(t, "Projector", got["assetName"])
	require.JSONEq(t, `{"assetID":1}`, string(raw))
}
