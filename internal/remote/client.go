package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/logger"
)

// API is the remote inventory client surface the sync engine consumes.
type API interface {
	// FetchPage returns one page of a collection. A returned page shorter
	// than limit means the collection is exhausted.
	FetchPage(ctx context.Context, acc *domain.Account, endpoint, filter string, limit, offset int) ([]domain.Entity, error)
	FetchEntity(ctx context.Context, acc *domain.Account, endpoint, id string) (*domain.Entity, error)
	Create(ctx context.Context, acc *domain.Account, endpoint string, body map[string]any) (*domain.Entity, error)
	CreateBulk(ctx context.Context, acc *domain.Account, endpoint string, bodies []map[string]any) ([]BulkResult, error)
	Update(ctx context.Context, acc *domain.Account, endpoint, id string, body map[string]any) (*domain.Entity, error)
	Delete(ctx context.Context, acc *domain.Account, endpoint, id string) error
}

// BulkResult is one element of a bulk create/update response: either the
// written entity or the per-item error the remote side reported.
type BulkResult struct {
	Entity *domain.Entity
	Err    *APIError
}

// Client is the HTTP implementation of API. Every request consults the
// shared rate tracker before sending and updates it from response headers.
type Client struct {
	baseURL string
	http    *http.Client
	tracker *RateTracker
}

// NewClient creates a remote API client with a fixed per-request timeout.
func NewClient(baseURL string, timeout time.Duration, tracker *RateTracker) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tracker: tracker,
	}
}

// FetchPage returns one page of a collection
func (c *Client) FetchPage(ctx context.Context, acc *domain.Account, endpoint, filter string, limit, offset int) ([]domain.Entity, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	if filter != "" {
		q.Set("filter", filter)
	}

	body, err := c.do(ctx, acc, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Rows []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode collection page: %w", err)
	}

	rows := make([]domain.Entity, 0, len(page.Rows))
	for _, raw := range page.Rows {
		e, err := DecodeEntity(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode collection row: %w", err)
		}
		rows = append(rows, e)
	}
	return rows, nil
}

// FetchEntity returns one record by id
func (c *Client) FetchEntity(ctx context.Context, acc *domain.Account, endpoint, id string) (*domain.Entity, error) {
	body, err := c.do(ctx, acc, http.MethodGet, endpoint+"/"+id, nil)
	if err != nil {
		return nil, err
	}
	e, err := DecodeEntity(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	return &e, nil
}

// Create posts one new record
func (c *Client) Create(ctx context.Context, acc *domain.Account, endpoint string, payload map[string]any) (*domain.Entity, error) {
	body, err := c.do(ctx, acc, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}
	e, err := DecodeEntity(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode created entity: %w", err)
	}
	return &e, nil
}

// CreateBulk posts a chunk of records in one call. The remote side applies
// items independently: the response array mixes written entities with
// per-item error objects in input order.
func (c *Client) CreateBulk(ctx context.Context, acc *domain.Account, endpoint string, payloads []map[string]any) ([]BulkResult, error) {
	body, err := c.do(ctx, acc, http.MethodPost, endpoint, payloads)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	results := make([]BulkResult, 0, len(raws))
	for _, raw := range raws {
		if apiErr := decodeItemError(raw); apiErr != nil {
			results = append(results, BulkResult{Err: apiErr})
			continue
		}
		e, err := DecodeEntity(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bulk row: %w", err)
		}
		results = append(results, BulkResult{Entity: &e})
	}
	return results, nil
}

// Update puts changes to one record
func (c *Client) Update(ctx context.Context, acc *domain.Account, endpoint, id string, payload map[string]any) (*domain.Entity, error) {
	body, err := c.do(ctx, acc, http.MethodPut, endpoint+"/"+id, payload)
	if err != nil {
		return nil, err
	}
	e, err := DecodeEntity(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode updated entity: %w", err)
	}
	return &e, nil
}

// Delete removes one record
func (c *Client) Delete(ctx context.Context, acc *domain.Account, endpoint, id string) error {
	_, err := c.do(ctx, acc, http.MethodDelete, endpoint+"/"+id, nil)
	return err
}

func (c *Client) do(ctx context.Context, acc *domain.Account, method, path string, payload any) ([]byte, error) {
	avail := c.tracker.CheckAvailability(acc.ID, 1)
	if !avail.Available {
		return nil, &RateLimitError{RetryAfter: avail.RetryAfter}
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+acc.AccessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.tracker.UpdateFromResponse(acc.ID, parseRateHeaders(resp.Header))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// Informational redirect, never surfaced as an error.
		logger.FromContext(ctx).Debug("remote redirect", "status", resp.StatusCode, "path", path)
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp.Header)}
	default:
		return nil, parseAPIError(resp.StatusCode, body)
	}
}

func parseRateHeaders(h http.Header) RateLimitInfo {
	info := RateLimitInfo{
		Limit:     headerInt(h, "X-RateLimit-Limit"),
		Remaining: headerInt(h, "X-RateLimit-Remaining"),
	}
	if ra := retryAfter(h); ra > 0 {
		info.RetryAfter = ra
	}
	return info
}

func retryAfter(h http.Header) time.Duration {
	if s := h.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func headerInt(h http.Header, key string) int {
	v, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0
	}
	return v
}

type wireError struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"error"`
	} `json:"errors"`
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Message: http.StatusText(status)}
	var wire wireError
	if err := json.Unmarshal(body, &wire); err == nil && len(wire.Errors) > 0 {
		apiErr.Code = wire.Errors[0].Code
		apiErr.Message = wire.Errors[0].Message
	}
	return apiErr
}

// decodeItemError detects a per-item error object in a bulk response.
func decodeItemError(raw json.RawMessage) *APIError {
	var wire wireError
	if err := json.Unmarshal(raw, &wire); err != nil || len(wire.Errors) == 0 {
		return nil
	}
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       wire.Errors[0].Code,
		Message:    wire.Errors[0].Message,
	}
}
