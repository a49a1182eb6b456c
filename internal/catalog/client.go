package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avlowe/cratedig/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Cratedig/1.0"

	// Retry configuration for transient errors
	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client implements domain.Browser over the crate server's JSON API.
// The server keeps one browse cursor per token; the client does not
// serialize callers itself.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new crate server API client
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// Browse moves the cursor and returns the header of the resolved list
func (c *Client) Browse(ctx context.Context, opts domain.BrowseOptions) (*domain.ListHeader, error) {
	body := browseRequest{
		RootReset:    opts.RootReset,
		ItemKey:      opts.ItemKey,
		OutputTarget: opts.OutputTarget,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/v1/browse", nil, body)
	if err != nil {
		return nil, err
	}

	var resp browseResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse browse response: %w", err)
	}

	return mapHeader(resp.Header), nil
}

// LoadPage returns a page of children of the addressed node
func (c *Client) LoadPage(ctx context.Context, itemKey string, offset, count int) ([]domain.CatalogItem, error) {
	query := url.Values{}
	if itemKey != "" {
		query.Set("itemKey", itemKey)
	}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("count", strconv.Itoa(count))

	respBody, err := c.doRequest(ctx, http.MethodGet, "/v1/items", query, nil)
	if err != nil {
		return nil, err
	}

	var resp itemsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse items response: %w", err)
	}

	return mapItems(resp.Items), nil
}

// FetchImage retrieves a cover-art blob by its opaque key
func (c *Client) FetchImage(ctx context.Context, imageKey string, opts domain.ImageOptions) (*domain.ImagePayload, error) {
	query := url.Values{}
	if opts.Width > 0 {
		query.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		query.Set("height", strconv.Itoa(opts.Height))
	}
	if opts.Format != "" {
		query.Set("format", opts.Format)
	}

	reqURL := fmt.Sprintf("%s/v1/image/%s?%s", c.baseURL, url.PathEscape(imageKey), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	c.logger.Debug("catalog image request", "key", imageKey, "width", opts.Width, "height", opts.Height)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalog image request failed", "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, domain.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	payload := &domain.ImagePayload{
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       data,
	}
	sniffImageMeta(payload)
	return payload, nil
}

// PlayFromCurrentPosition starts playback of the list at the cursor
func (c *Client) PlayFromCurrentPosition(ctx context.Context, outputTarget string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/v1/play", nil, playRequest{OutputTarget: outputTarget})
	return err
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", userAgent)
}

// doRequest performs an authenticated request with bounded retry on
// network and 5xx errors. 4xx responses are never retried.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = reqURL + "?" + query.Encode()
	}

	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	c.logger.Debug("catalog request", "method", method, "url", reqURL)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Wait before retry (skip on first attempt)
		if attempt > 0 {
			wait := baseRetryWait * time.Duration(1<<(attempt-1))
			c.logger.Debug("catalog retry", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		var bodyReader io.Reader
		if jsonBody != nil {
			bodyReader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = domain.ErrServerOffline
			c.logger.Warn("catalog request failed", "error", err)
			continue // Retry on network error
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized {
			return nil, domain.ErrAuthFailed
		}

		// Retry on 5xx server errors
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			c.logger.Warn("catalog server error", "status", resp.StatusCode)
			continue
		}

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			c.logger.Error("catalog request error", "status", resp.StatusCode, "body", string(respBody))
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}
