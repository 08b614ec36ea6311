package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	flySocketPath = "/.fly/api"
	stsAudience   = "sts.amazonaws.com"
	flyTokenURL   = "http://localhost/v1/tokens/oidc"
)

// flyTokenRetriever implements stscreds.IdentityTokenRetriever using the
// Fly.io machine API, which is only reachable over a Unix socket
type flyTokenRetriever struct {
	client   *http.Client
	audience string
}

func newFlyTokenRetriever(socketPath, audience string) *flyTokenRetriever {
	var dialer net.Dialer
	return &flyTokenRetriever{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return dialer.DialContext(ctx, "unix", socketPath)
				},
			},
			Timeout: 5 * time.Second,
		},
		audience: audience,
	}
}

// GetIdentityToken requests a fresh OIDC token for the configured audience
func (f *flyTokenRetriever) GetIdentityToken() ([]byte, error) {
	body, err := json.Marshal(struct {
		Audience string `json:"aud"`
	}{f.audience})
	if err != nil {
		return nil, fmt.Errorf("marshal token request: %w", err)
	}

	resp, err := f.client.Post(flyTokenURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request oidc token: %w", err)
	}
	defer resp.Body.Close()

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read oidc token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oidc token request returned %d: %s", resp.StatusCode, token)
	}
	return token, nil
}
