package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/claudia-coord/claudia/internal/config"
	"github.com/claudia-coord/claudia/internal/coordinatorerr"
)

// httpBackend issues requests against a running Coordinator, retrying
// transient failures with the exponential schedule of §4.5: 0.5s, 1s,
// 2s, 4s, capped at 8s, maximum 5 attempts. Grounded on Hochfrequenz's
// buildworker/client.go calculateBackoff, generalized from a fixed
// doubling-from-1s schedule to the spec's doubling-from-base schedule
// with its own cap and attempt budget.
type httpBackend struct {
	baseURL    string
	httpClient *http.Client
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
}

func newHTTPBackend(port int, cfg *config.Config) *httpBackend {
	requestTimeout := 5 * time.Second
	baseDelay := 500 * time.Millisecond
	maxDelay := 8 * time.Second
	maxRetries := 5
	if cfg != nil {
		if cfg.Client.RetryBaseDelay > 0 {
			baseDelay = cfg.Client.RetryBaseDelay
		}
		if cfg.Client.RetryMaxDelay > 0 {
			maxDelay = cfg.Client.RetryMaxDelay
		}
		if cfg.Client.MaxRetries > 0 {
			maxRetries = cfg.Client.MaxRetries
		}
	}
	return &httpBackend{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{Timeout: requestTimeout},
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		maxRetries: maxRetries,
	}
}

// calculateBackoff returns the delay before retry attempt n (0-indexed,
// n=0 is the delay before the second overall attempt): base, 2*base,
// 4*base, ..., capped at maxDelay.
func (b *httpBackend) calculateBackoff(attempt int) time.Duration {
	delay := b.baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > b.maxDelay {
			return b.maxDelay
		}
	}
	return delay
}

// do POSTs body (or performs a bare GET if body is nil) to path and
// decodes the JSON response into out. It makes up to maxRetries attempts
// in all, retrying on connect/read failures and on coordinatorerr.LockTimeout/Unavailable
// responses; a decoded 4xx error of any other kind is returned
// immediately without retrying, per §4.5's "non-transient 4xx errors
// are not retried".
func (b *httpBackend) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return coordinatorerr.Wrap(coordinatorerr.InvalidArgument, "encode request", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt < b.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return coordinatorerr.Wrap(coordinatorerr.Unavailable, "request cancelled", ctx.Err())
			case <-time.After(b.calculateBackoff(attempt - 1)):
			}
		}

		err := b.attempt(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !coordinatorerr.IsRetryable(err) {
			return err
		}
	}
	return coordinatorerr.Wrap(coordinatorerr.Unavailable, "retries exhausted", lastErr)
}

func (b *httpBackend) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	u, err := url.Parse(b.baseURL + path)
	if err != nil {
		return coordinatorerr.Wrap(coordinatorerr.Internal, "build request url", err)
	}

	var bodyReader *bytes.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return coordinatorerr.Wrap(coordinatorerr.Internal, "build request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		// Below-HTTP failures (dial refused, read timeout, etc.) are
		// exactly the transient case §4.5 retries.
		return coordinatorerr.Wrap(coordinatorerr.Unavailable, "coordinator unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var wire struct {
			Error string `json:"error"`
			Kind  string `json:"kind"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&wire)
		kind := coordinatorerr.KindFromHTTPStatus(resp.StatusCode, wire.Kind)
		return coordinatorerr.New(kind, wire.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return coordinatorerr.Wrap(coordinatorerr.Internal, "decode response", err)
	}
	return nil
}
