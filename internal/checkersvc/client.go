package checkersvc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"

	"github.com/havenlang/havenchk/internal/mir"
)

// Client talks to a Server over HTTP/3.
type Client struct {
	http *http.Client
	base string
}

// NewClient returns a Client targeting baseURL (e.g. "https://localhost:4433").
func NewClient(baseURL string, tlsCfg *tls.Config, timeout time.Duration) *Client {
	tlsCfg = ensureH3TLS(tlsCfg)

	return &Client{
		http: &http.Client{Transport: &http3.Transport{TLSClientConfig: tlsCfg}, Timeout: timeout},
		base: baseURL,
	}
}

// Close releases the HTTP/3 transport's QUIC connections.
func (c *Client) Close() error {
	if tr, ok := c.http.Transport.(*http3.Transport); ok {
		return tr.Close()
	}

	return nil
}

// Check submits mod for analysis and returns the resulting diagnostics.
func (c *Client) Check(ctx context.Context, mod *mir.Module) (CheckResponse, error) {
	body, err := json.Marshal(mod)
	if err != nil {
		return CheckResponse{}, fmt.Errorf("checkersvc: encode module: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/check", bytes.NewReader(body))
	if err != nil {
		return CheckResponse{}, fmt.Errorf("checkersvc: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return CheckResponse{}, fmt.Errorf("checkersvc: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)

		return CheckResponse{}, fmt.Errorf("checkersvc: server returned %s: %s", resp.Status, data)
	}

	var out CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CheckResponse{}, fmt.Errorf("checkersvc: decode response: %w", err)
	}

	return out, nil
}
