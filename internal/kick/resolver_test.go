package kick

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Resolver{baseURL: srv.URL + "/", client: &http.Client{Timeout: time.Second}}
}

func TestResolver_Resolve(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/xqc", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		w.Write([]byte(`{"id": 7, "slug": "xqc", "chatroom": {"id": 668}}`))
	})

	info, err := r.Resolve(context.Background(), "xqc")
	require.NoError(t, err)
	assert.Equal(t, "xqc", info.Slug)
	assert.Equal(t, 668, info.Chatroom.ID)
}

func TestResolver_Resolve_Status(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("blocked"))
	})

	_, err := r.Resolve(context.Background(), "xqc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "blocked")
}

func TestResolver_Resolve_NoChatroom(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`{"id": 7, "slug": "xqc"}`))
	})

	_, err := r.Resolve(context.Background(), "xqc")
	assert.Error(t, err)
}

func TestResolver_Resolve_BadJSON(t *testing.T) {
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte(`<html>`))
	})

	_, err := r.Resolve(context.Background(), "xqc")
	assert.Error(t, err)
}
