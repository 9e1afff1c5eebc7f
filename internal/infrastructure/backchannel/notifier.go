// Package backchannel delivers account lifecycle tokens to relying-party endpoints.
package backchannel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier POSTs a token to <baseURL><path> as form field logout_token.
type Notifier struct {
	http    *http.Client
	path    string
	timeout time.Duration
}

func NewNotifier(client *http.Client, path string, timeout time.Duration) *Notifier {
	if client == nil {
		client = &http.Client{}
	}
	return &Notifier{http: client, path: path, timeout: timeout}
}

// Endpoint returns the notification URL for a client base URL.
func (n *Notifier) Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + n.path
}

// Notify makes one delivery attempt bounded by the notifier timeout. Any
// non-2xx answer is an error.
func (n *Notifier) Notify(ctx context.Context, baseURL, token string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	form := url.Values{"logout_token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint(baseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build backchannel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("backchannel post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backchannel post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
