package loadgen

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
	"time"
)

// Errors returned by the client.
var (
	ErrConflict   = errors.New("like conflict")
	ErrStatus     = errors.New("unexpected status")
	ErrNoItemID   = errors.New("create response carried no item id")
	ErrNotHealthy = errors.New("service not healthy")
)

// Client calls the hot items HTTP API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, client: &http.Client{Timeout: timeout}}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrNotHealthy, resp.StatusCode)
	}
	return nil
}

// Create posts a new item and returns its id.
func (c *Client) Create(ctx context.Context, content, userID string) (string, error) {
	body := map[string]string{"content": content, "user_id": userID}
	resp, err := c.do(ctx, http.MethodPost, "/items", body)
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: create returned %d", ErrStatus, resp.StatusCode)
	}
	var out struct {
		Item struct {
			ID string `json:"id"`
		} `json:"item"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if out.Item.ID == "" {
		return "", ErrNoItemID
	}
	return out.Item.ID, nil
}

// Like posts one like for id.
func (c *Client) Like(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodPost, "/items/"+url.PathEscape(id)+"/like", nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("%w: like returned %d", ErrStatus, resp.StatusCode)
	}
}

// Hot fetches the top n entries.
func (c *Client) Hot(ctx context.Context, n int) ([]Entry, error) {
	resp, err := c.do(ctx, http.MethodGet, "/items/hot?limit="+strconv.Itoa(n), nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: hot returned %d", ErrStatus, resp.StatusCode)
	}
	var out struct {
		Items []Entry `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode hot response: %w", err)
	}
	return out.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
