// Package client talks to the health tracker REST API and holds the dashboard view-model.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/healthtracker/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string // the server's {"error": ...}; empty when the body had none
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// DateRange is an optional inclusive date filter; empty bounds are omitted.
type DateRange struct {
	Start string
	End   string
}

// Draft is the in-progress entry form. Values are raw form strings; the server validates them.
type Draft struct {
	Date      string `json:"date"`
	Steps     string `json:"steps"`
	HeartRate string `json:"heart_rate"`
}

// Health is the /api/health body.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Client is a typed client for the /api endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// New creates a Client for baseURL, e.g. "http://localhost:3001/api". A nil httpClient
// gets a 15 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, now: time.Now}
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h)
	return h, err
}

// ListMetrics fetches entries in r. Every call carries a fresh cache-busting parameter.
func (c *Client) ListMetrics(ctx context.Context, r DateRange) ([]models.Entry, error) {
	q := url.Values{}
	if r.Start != "" {
		q.Set("start", r.Start)
	}
	if r.End != "" {
		q.Set("end", r.End)
	}
	q.Set("t", strconv.FormatInt(c.now().UnixMilli(), 10))

	entries := []models.Entry{}
	if err := c.do(ctx, http.MethodGet, "/metrics", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CreateMetric posts d unchanged and returns the saved entry.
func (c *Client) CreateMetric(ctx context.Context, d Draft) (models.Entry, error) {
	var saved models.Entry
	err := c.do(ctx, http.MethodPost, "/metrics", nil, d, &saved)
	return saved, err
}

func (c *Client) GetMetric(ctx context.Context, id uint) (models.Entry, error) {
	var e models.Entry
	err := c.do(ctx, http.MethodGet, "/metrics/"+strconv.FormatUint(uint64(id), 10), nil, nil, &e)
	return e, err
}

func (c *Client) DeleteMetric(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, "/metrics/"+strconv.FormatUint(uint64(id), 10), nil, nil, nil)
}

func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var st models.Stats
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &st)
	return st, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&eb) == nil {
			apiErr.Message = eb.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
