package mhclient

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

	"github.com/docker/go-units"
	"github.com/ptgott/mhcheck/mailhog"
	"github.com/ptgott/mhcheck/userconfig"
	"github.com/rs/zerolog/log"
)

// MailHog responses with full message sources can get big, but we need a
// limit.
const defaultMaxResponseSize int64 = 64 * units.MiB

// ErrResponseTooLarge is returned when a MailHog response exceeds the
// Client's size limit. Requesting fewer messages per poll usually helps.
var ErrResponseTooLarge = errors.New("the MailHog API response is too large")

// StatusError is returned when MailHog answers with a non-2xx status and the
// request didn't opt out of failing on status codes.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	// Value of the WWW-Authenticate header on a 401
	Authenticate string
}

func (e *StatusError) Error() string {
	if e.StatusCode == http.StatusUnauthorized {
		return fmt.Sprintf(
			"got a 401 Unauthorized from the MailHog API for %v %v--authenticate via %v",
			e.Method,
			e.Path,
			e.Authenticate,
		)
	}
	return fmt.Sprintf(
		"got non-2xx status code of %v from the MailHog API for %v %v",
		e.Status,
		e.Method,
		e.Path,
	)
}

// RequestOptions tunes a single Request.
type RequestOptions struct {
	// Extra request headers
	Headers map[string]string
	// Bounds the request on top of any deadline in the context. Zero means
	// no extra bound.
	Timeout time.Duration
	// Return non-2xx responses instead of a *StatusError.
	AcceptAnyStatus bool
}

// Response is a fully read MailHog API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client handles requests to one MailHog server. You must initialize it via
// New.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	// largest response body we read, in bytes
	maxResponseSize int64
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient makes the Client send requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxResponseSize caps response bodies at n bytes. Non-positive values
// keep the 64 MiB default.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseSize = n
		}
	}
}

// New validates cfg and returns a Client for the MailHog server it
// describes.
func New(cfg userconfig.MailHog, opts ...Option) (*Client, error) {
	checked, err := cfg.CheckAndSetDefaults()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:  checked.URL,
		username: checked.Username,
		password: checked.Password,
		httpClient: &http.Client{
			// A single poll should never take this long. The retry
			// session bounds requests more tightly via the context.
			Timeout: time.Duration(30) * time.Second,
		},
		maxResponseSize: defaultMaxResponseSize,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the validated base URL of the MailHog server.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request sends an HTTP request to the MailHog API. path is relative to
// "<base URL>/api", e.g., "/v2/messages?limit=10".
func (c *Client) Request(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
	opts RequestOptions,
) (*Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, body)
	if err != nil {
		return nil, fmt.Errorf("can't build the MailHog API request: %v", err)
	}

	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	log.Debug().
		Str("method", method).
		Str("path", path).
		Msg("sending a request to the MailHog API")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't reach the MailHog API: %w", err)
	}
	defer resp.Body.Close()

	// Read one byte past the limit so a truncated body can't pass as a
	// complete one.
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(resp.Body, c.maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("can't read the MailHog API response: %w", err)
	}
	if n > c.maxResponseSize {
		return nil, fmt.Errorf(
			"%w: %v %v returned more than %v, lower the message limit",
			ErrResponseTooLarge,
			method,
			path,
			units.BytesSize(float64(c.maxResponseSize)),
		)
	}

	if !opts.AcceptAnyStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &StatusError{
			Method:       method,
			Path:         path,
			StatusCode:   resp.StatusCode,
			Status:       resp.Status,
			Authenticate: resp.Header.Get("WWW-Authenticate"),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       buf.Bytes(),
	}, nil
}

// Messages returns the newest up-to-limit messages held by MailHog, newest
// first.
//
// Uses the API documented here:
// https://github.com/mailhog/MailHog/blob/0441dd494b03c9255a9b8e90e3458ebb115eacff/docs/APIv2/swagger-2.0.yaml
func (c *Client) Messages(ctx context.Context, limit int) ([]mailhog.Message, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return c.list(ctx, "/v2/messages?"+q.Encode())
}

// Search returns up to limit messages matching query, using MailHog's own
// search of the given kind.
func (c *Client) Search(
	ctx context.Context,
	kind mailhog.SearchKind,
	query string,
	limit int,
) ([]mailhog.Message, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))
	return c.list(ctx, "/v2/search?"+q.Encode())
}

func (c *Client) list(ctx context.Context, path string) ([]mailhog.Message, error) {
	resp, err := c.Request(ctx, http.MethodGet, path, nil, RequestOptions{})
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return nil, errors.New("got an empty response body from the MailHog server")
	}

	var m mailhog.Messages
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return nil, fmt.Errorf("can't read the API response as JSON: %v", err)
	}
	if m.Items == nil {
		return []mailhog.Message{}, nil
	}
	return m.Items, nil
}

// DeleteAll removes every message from MailHog. Don't call it while a retry
// session is polling the same server.
func (c *Client) DeleteAll(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodDelete, "/v1/messages", nil, RequestOptions{})
	return err
}

// JimMode reports whether Jim, MailHog's chaos monkey, is enabled.
//
// https://github.com/mailhog/MailHog/blob/0441dd494b03c9255a9b8e90e3458ebb115eacff/docs/JIM.md
func (c *Client) JimMode(ctx context.Context) (bool, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/v2/jim", nil, RequestOptions{
		AcceptAnyStatus: true,
	})
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, &StatusError{
		Method:       http.MethodGet,
		Path:         "/v2/jim",
		StatusCode:   resp.StatusCode,
		Status:       strconv.Itoa(resp.StatusCode),
		Authenticate: resp.Header.Get("WWW-Authenticate"),
	}
}

// SetJimMode enables or disables Jim.
func (c *Client) SetJimMode(ctx context.Context, enabled bool) error {
	method := http.MethodDelete
	if enabled {
		method = http.MethodPost
	}
	_, err := c.Request(ctx, method, "/v2/jim", nil, RequestOptions{})
	return err
}
