package kick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://kick.com/api/v2/channels/"

// ChannelInfo is the subset of the Kick channel API response we need
type ChannelInfo struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Chatroom struct {
		ID int `json:"id"`
	} `json:"chatroom"`
}

// Resolver looks up chatroom IDs through the Kick channel API
type Resolver struct {
	baseURL string
	client  *http.Client
}

// NewResolver creates a resolver against the public Kick API
func NewResolver() *Resolver {
	return &Resolver{
		baseURL: defaultAPIBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve fetches channel information for a slug
func (r *Resolver) Resolve(ctx context.Context, slug string) (ChannelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+slug, nil)
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("create request: %w", err)
	}

	// Kick sits behind CloudFlare, which rejects requests that do not look like a browser.
	// Accept-Encoding is left to net/http so gzip is decoded transparently.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://kick.com/")
	req.Header.Set("Origin", "https://kick.com")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")

	resp, err := r.client.Do(req)
	if err != nil {
		return ChannelInfo{}, fmt.Errorf("request channel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ChannelInfo{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var info ChannelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return ChannelInfo{}, fmt.Errorf("decode channel: %w", err)
	}
	if info.Chatroom.ID == 0 {
		return ChannelInfo{}, fmt.Errorf("channel %s has no chatroom", slug)
	}

	return info, nil
}
