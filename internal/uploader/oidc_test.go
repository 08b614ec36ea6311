package uploader

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unixServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()

	// Unix socket paths are length limited, so avoid the long t.TempDir path
	dir, err := os.MkdirTemp("", "oidc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	socket := filepath.Join(dir, "api.sock")
	listener, err := net.Listen("unix", socket)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(handler)
	srv.Listener = listener
	srv.Start()
	t.Cleanup(srv.Close)

	return socket
}

func TestFlyTokenRetriever(t *testing.T) {
	socket := unixServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/tokens/oidc", r.URL.Path)

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, stsAudience, req["aud"])

		w.Write([]byte("jwt-token"))
	})

	token, err := newFlyTokenRetriever(socket, stsAudience).GetIdentityToken()

	require.NoError(t, err)
	assert.Equal(t, "jwt-token", string(token))
}

func TestFlyTokenRetriever_ErrorStatus(t *testing.T) {
	socket := unixServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no machine identity", http.StatusForbidden)
	})

	_, err := newFlyTokenRetriever(socket, stsAudience).GetIdentityToken()

	assert.ErrorContains(t, err, "403")
}

func TestFlyTokenRetriever_NoSocket(t *testing.T) {
	_, err := newFlyTokenRetriever(filepath.Join(t.TempDir(), "missing.sock"), stsAudience).GetIdentityToken()

	assert.Error(t, err)
}
