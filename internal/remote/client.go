// Package remote holds HTTP clients for the skycast server: the weather lookup
// endpoint and the favorites API.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const httpTimeout = 15 * time.Second

// IdentityHeader must match the header the server reads on favorites routes.
const IdentityHeader = "X-User-ID"

// errMalformedResponse marks a 2xx response whose body could not be decoded.
var errMalformedResponse = errors.New("malformed response")

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// conn carries the settings shared by every client.
type conn struct {
	baseURL string
	token   string
	client  *http.Client
}

func newConn(baseURL, token string) conn {
	return conn{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// do sends a request and decodes a 2xx JSON response into dst (when non-nil).
// Non-2xx responses become *StatusError carrying the server's {"error"} text.
func (c conn) do(ctx context.Context, method, path string, body any, header http.Header, dst any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	rawURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &eb) != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{Status: resp.StatusCode, Message: eb.Error}
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w from %s: %w", errMalformedResponse, rawURL, err)
	}
	return nil
}
