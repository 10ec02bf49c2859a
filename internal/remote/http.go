// ABOUTME: Network Client speaking the levelup document REST API
// ABOUTME: Subscriptions ride a gorilla/websocket watch stream carrying Snapshot frames

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// HTTPClient is a Client talking to a levelup server.
type HTTPClient struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	dialer    *websocket.Dialer
	opTimeout time.Duration
	logger    *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.http = c }
}

// WithRequestTimeout bounds each REST call.
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) { h.opTimeout = d }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPClient) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHTTPClient creates a client for the server at baseURL authenticating
// with the given bearer token.
func NewHTTPClient(baseURL, token string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server URL must be http or https, got %q", baseURL)
	}

	c := &HTTPClient{
		baseURL:   u,
		token:     token,
		http:      &http.Client{},
		dialer:    websocket.DefaultDialer,
		opTimeout: DefaultOpTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "remote.http")
	return c, nil
}

func (c *HTTPClient) docURL(h Handle) string {
	return c.baseURL.String() + "/api/docs/" + h.Path()
}

// FetchOnce reads the document at h.
func (c *HTTPClient) FetchOnce(ctx context.Context, h Handle) (Document, error) {
	snap, err := c.do(ctx, http.MethodGet, h, nil)
	if err != nil {
		return nil, err
	}
	doc, err := snap.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", h, err)
	}
	return doc, nil
}

// Replace overwrites the document at h.
func (c *HTTPClient) Replace(ctx context.Context, h Handle, doc Document) error {
	_, err := c.do(ctx, http.MethodPut, h, doc)
	return err
}

// Merge overlays partial onto the document at h.
func (c *HTTPClient) Merge(ctx context.Context, h Handle, partial Document) error {
	_, err := c.do(ctx, http.MethodPatch, h, partial)
	return err
}

func (c *HTTPClient) do(ctx context.Context, method string, h Handle, body Document) (Snapshot, error) {
	if err := h.Validate(); err != nil {
		return Snapshot{}, err
	}

	if c.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opTimeout)
		defer cancel()
	}

	var reader io.Reader
	if method != http.MethodGet {
		if body == nil {
			body = Document{}
		}
		data, err := json.Marshal(body)
		if err != nil {
			return Snapshot{}, fmt.Errorf("encoding %s: %w", h, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.docURL(h), reader)
	if err != nil {
		return Snapshot{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return Snapshot{}, ctx.Err()
		}
		return Snapshot{}, fmt.Errorf("%s %s: %w: %w", method, h, ErrTransientIO, err)
	}
	defer resp.Body.Close()

	if err := statusError(method, h, resp); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%s %s: %w: decoding response: %w", method, h, ErrTransientIO, err)
	}
	return snap, nil
}

func statusError(method string, h Handle, resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s: %w: %s", method, h, ErrPermissionDenied, body.Error)
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w: status %d", method, h, ErrTransientIO, resp.StatusCode)
	default:
		return fmt.Errorf("%s %s: status %d: %s", method, h, resp.StatusCode, body.Error)
	}
}

// Subscribe opens a watch stream for h. The server sends the current state
// first and then one frame per change.
func (c *HTTPClient) Subscribe(ctx context.Context, h Handle, onChange ChangeFunc) (Unsubscribe, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path += "/api/docs/watch"
	wsURL.RawQuery = url.Values{"path": {h.Path()}}.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if serr := statusError("WATCH", h, resp); serr != nil {
				return nil, serr
			}
		}
		return nil, fmt.Errorf("watch %s: %w: %w", h, ErrTransientIO, err)
	}

	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	go func() {
		defer stop()
		for {
			var snap Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && ctx.Err() == nil {
					c.logger.Debug("watch stream ended", "path", h.Path(), "error", err)
				}
				return
			}
			doc, err := snap.Decode()
			if err != nil {
				c.logger.Warn("dropping undecodable snapshot", "path", h.Path(), "error", err)
				continue
			}
			onChange(doc, snap.Exists)
		}
	}()

	return stop, nil
}
