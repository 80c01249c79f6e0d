package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultRequestsPerSecond = 5

// apiClient is a small JSON-over-HTTP client shared by the REST
// adapters: token-bucket rate limiting, on-demand credential
// resolution, and status-aware error reporting.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	creds      CredentialSource
	authScheme string // "Bearer" or "token"
}

func newAPIClient(baseURL string, creds CredentialSource, authScheme string, rps int) *apiClient {
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), rps*2),
		creds:      creds,
		authScheme: authScheme,
	}
}

// apiError carries the HTTP status so callers can branch on it.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("status %d: %s", e.Status, body)
}

// isNotFound reports whether err is an HTTP 404.
func isNotFound(err error) bool {
	apiErr, ok := err.(*apiError)
	return ok && apiErr.Status == http.StatusNotFound
}

// doJSON issues one request. A non-nil body is JSON-encoded; a non-nil
// out receives the decoded response. Non-2xx responses come back as
// *apiError.
func (c *apiClient) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("resolving credentials: %w", err)
	}
	req.Header.Set("Authorization", c.authScheme+" "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
