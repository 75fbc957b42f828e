package api

import (
	"context"
	"net/http"
	"strconv"
)

// Resource is the method set shared by every entity endpoint: one generic
// factory instead of five structurally identical service implementations.
type Resource[T any] struct {
	client *Client
	base   string
}

// NewResource binds a Resource to its endpoint, e.g. "/Departments".
func NewResource[T any](client *Client, base string) Resource[T] {
	return Resource[T]{client: client, base: base}
}

// Endpoint returns the resource base path.
func (r Resource[T]) Endpoint() string {
	return r.base
}

// Client returns the underlying HTTP client.
func (r Resource[T]) Client() *Client {
	return r.client
}

// List fetches the full entity list.
func (r Resource[T]) List(ctx context.Context) ([]T, error) {
	raw, err := r.client.Request(ctx, http.MethodGet, r.base, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]T](raw)
}

// Get fetches a single entity by primary key.
func (r Resource[T]) Get(ctx context.Context, id int64) (T, error) {
	raw, err := r.client.Request(ctx, http.MethodGet, r.idPath(id), nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// Create posts a new entity payload.
func (r Resource[T]) Create(ctx context.Context, payload any) (T, error) {
	raw, err := r.client.Request(ctx, http.MethodPost, r.base, payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// Update replaces an entity by primary key.
func (r Resource[T]) Update(ctx context.Context, id int64, payload any) (T, error) {
	raw, err := r.client.Request(ctx, http.MethodPut, r.idPath(id), payload)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// Delete removes a single entity. The API answers 204 on success.
func (r Resource[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.client.Request(ctx, http.MethodDelete, r.idPath(id), nil)
	return err
}

// BulkDelete removes the identified entities in one call.
func (r Resource[T]) BulkDelete(ctx context.Context, ids []int64) error {
	_, err := r.client.Request(ctx, http.MethodDelete, r.base+"/bulk", map[string][]int64{"ids": ids})
	return err
}

func (r Resource[T]) idPath(id int64) string {
	return r.base + "/" + strconv.FormatInt(id, 10)
}
