package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrKeyNotFound is returned by Client.Get when the server has no such key.
var ErrKeyNotFound = errors.New("key not found")

// Client talks to a Server over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// Store sends value as the given type and returns the generated key.
func (c *Client) Store(ctx context.Context, typ string, value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	body, err := json.Marshal(StoreRequest{Type: typ, Value: raw})
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, http.MethodPost, "/store", nil, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", statusError(resp)
	}
	var out struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Key, nil
}

// Get fetches key decoded as as ("raw", "str", "int" or "float") and returns
// the response body.
func (c *Client) Get(ctx context.Context, key, as string) ([]byte, error) {
	q := url.Values{"key": {key}}
	if as != "" {
		q.Set("as", as)
	}

	resp, err := c.do(ctx, http.MethodGet, "/get", q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrKeyNotFound
	default:
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if as == "int" || as == "float" {
		var out struct {
			Value json.Number `json:"value"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return []byte(out.Value.String()), nil
	}
	return body, nil
}

// Replay returns the server's replay text for method.
func (c *Client) Replay(ctx context.Context, method string) (string, error) {
	var q url.Values
	if method != "" {
		q = url.Values{"method": {method}}
	}

	resp, err := c.do(ctx, http.MethodGet, "/replay", q, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Response, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
