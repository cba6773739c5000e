package session

import (
	"tasktrack/internal/backend/rest"
	"tasktrack/internal/service"
	"tasktrack/internal/storage"
	"tasktrack/internal/transport"
)

var testUser = service.User{ID: "u1", Email: "a@b.com"}

func newRealClient(baseURL string, kv storage.Store) *rest.Client {
	ts := NewTokenSource(kv)
	return rest.New(transport.New(baseURL, transport.WithTokenSource(ts)), ts)
}
