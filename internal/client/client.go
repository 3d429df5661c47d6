// Package client talks to a running lu-server over HTTP and WebSocket.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vegarwe/skistart-lockedup/internal/rack"
	"github.com/vegarwe/skistart-lockedup/internal/shared"
)

var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Dialer  *websocket.Dialer
}

// New returns a client sharing one cookie jar between HTTP calls and Watch,
// so a Login covers both.
func New(baseURL string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 20 * time.Second,
			Jar:     jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Jar:              jar,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode >= 300 {
		var er shared.ErrorResponse
		if json.Unmarshal(b, &er) != nil || er.Error == "" {
			er.Error = strings.TrimSpace(string(b))
		}
		return &StatusError{Code: resp.StatusCode, Message: er.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) jsonRequest(method, path string, body any) (*http.Request, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Login posts the password; the server answers with a redirect and the auth cookie.
func (c *Client) Login(ctx context.Context, password string) error {
	form := url.Values{"password": {password}}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		return &StatusError{Code: resp.StatusCode, Message: "login failed"}
	}
	return nil
}

func (c *Client) Status(ctx context.Context) ([]rack.PortStatus, error) {
	req, err := c.jsonRequest(http.MethodGet, "/api/status", nil)
	if err != nil {
		return nil, err
	}
	var env shared.StatusEnvelope
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	return env.Rack, nil
}

// Unlock clears the card on port and returns the resulting status.
func (c *Client) Unlock(ctx context.Context, port int) ([]rack.PortStatus, error) {
	req, err := c.jsonRequest(http.MethodPut, "/api/unlock", shared.UnlockRequest{Number: port})
	if err != nil {
		return nil, err
	}
	var env shared.StatusEnvelope
	if err := c.do(ctx, req, &env); err != nil {
		return nil, err
	}
	return env.Rack, nil
}

func (c *Client) Log(ctx context.Context, limit int) ([]shared.JournalEntry, error) {
	path := "/api/log"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	req, err := c.jsonRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var lr shared.LogResponse
	if err := c.do(ctx, req, &lr); err != nil {
		return nil, err
	}
	return lr.Entries, nil
}

func (c *Client) Health(ctx context.Context) (shared.HealthResponse, error) {
	var h shared.HealthResponse
	req, err := c.jsonRequest(http.MethodGet, "/healthz", nil)
	if err != nil {
		return h, err
	}
	err = c.do(ctx, req, &h)
	return h, err
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.BaseURL + "/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// Watch streams notifications to fn until ctx is done, the connection drops
// or fn returns an error. The first envelope is always a status.
func (c *Client) Watch(ctx context.Context, fn func(shared.Envelope) error) error {
	u, err := c.wsURL()
	if err != nil {
		return err
	}
	conn, resp, err := c.Dialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return &StatusError{Code: resp.StatusCode, Message: "websocket handshake failed"}
		}
		return fmt.Errorf("failed to dial %s: %w", u, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var env shared.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("failed to read notification: %w", err)
		}
		if err := fn(env); err != nil {
			return err
		}
	}
}
