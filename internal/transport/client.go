// Package transport implements the default server adapter for the feed
// engine: page fetches over HTTP and a shared websocket stream carrying
// channel subscriptions and per-note captures. It satisfies feed.Transport.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbraaten/notefeed/internal/feed"
	"github.com/tbraaten/notefeed/internal/logging"
)

const (
	defaultDialTimeout       = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultReconnectInterval = 2 * time.Second
)

// Config configures the server adapter.
type Config struct {
	// BaseURL is the server origin, e.g. "https://example.social".
	BaseURL string

	// Token is the API token sent with every request.
	Token string

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client

	// DialTimeout bounds the websocket dial. Default: 10s.
	DialTimeout time.Duration

	// ReconnectInterval is the redial cadence after a dropped stream.
	// Default: 2s.
	ReconnectInterval time.Duration
}

// Client talks to one server. One client (and its single stream socket) may
// be shared by many columns; channel subscriptions and note captures are
// disposed independently.
type Client struct {
	cfg   Config
	base  *url.URL
	httpc *http.Client
	log   zerolog.Logger

	mu       sync.Mutex
	conn     wsConn
	channels map[string]*channelSub
	noteSubs map[string]func(feed.MutationEvent)
	closed   bool

	writeMu sync.Mutex
}

// NewClient creates a server adapter. The stream socket is dialed lazily on
// the first subscription.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:      cfg,
		base:     base,
		httpc:    httpc,
		log:      logging.WithServer(base.Host),
		channels: make(map[string]*channelSub),
		noteSubs: make(map[string]func(feed.MutationEvent)),
	}, nil
}

// endpoints maps feed variants to their timeline API endpoints.
var endpoints = map[feed.Variant]string{
	feed.VariantHome:   "notes/timeline",
	feed.VariantLocal:  "notes/local-timeline",
	feed.VariantSocial: "notes/hybrid-timeline",
	feed.VariantGlobal: "notes/global-timeline",
}

// channels maps feed variants to their stream channel names.
var channelNames = map[feed.Variant]string{
	feed.VariantHome:   "homeTimeline",
	feed.VariantLocal:  "localTimeline",
	feed.VariantSocial: "hybridTimeline",
	feed.VariantGlobal: "globalTimeline",
}

// FetchPage fetches one page of a feed variant, newest first.
func (c *Client) FetchPage(ctx context.Context, v feed.Variant, opts feed.FetchOptions) ([]*feed.Note, error) {
	endpoint, ok := endpoints[v]
	if !ok {
		return nil, &feed.TransportError{Class: feed.ClassNotFound, Op: "fetch", Err: fmt.Errorf("unknown variant %q", v)}
	}

	body := map[string]any{"i": c.cfg.Token}
	if opts.Limit > 0 {
		body["limit"] = opts.Limit
	}
	if opts.SinceID != "" {
		body["sinceId"] = opts.SinceID
	}
	if opts.UntilID != "" {
		body["untilId"] = opts.UntilID
	}
	for k, v := range opts.Filters {
		body[k] = v
	}

	var notes []*feed.Note
	if err := c.post(ctx, "fetch", endpoint, body, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// React persists the local user's reaction.
func (c *Client) React(ctx context.Context, noteID, reaction string) error {
	return c.post(ctx, "react", "notes/reactions/create", map[string]any{
		"i":        c.cfg.Token,
		"noteId":   noteID,
		"reaction": reaction,
	}, nil)
}

// Unreact removes the local user's reaction.
func (c *Client) Unreact(ctx context.Context, noteID string) error {
	return c.post(ctx, "unreact", "notes/reactions/delete", map[string]any{
		"i":      c.cfg.Token,
		"noteId": noteID,
	}, nil)
}

// Account is the authenticated user behind the configured token.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Me returns the account the token authenticates as.
func (c *Client) Me(ctx context.Context) (Account, error) {
	var acct Account
	if err := c.post(ctx, "me", "i", map[string]any{"i": c.cfg.Token}, &acct); err != nil {
		return Account{}, err
	}
	return acct, nil
}

// PermittedVariants returns the feed variants the server currently permits.
// Usable as a feed.VariantResolver.
func (c *Client) PermittedVariants(ctx context.Context) ([]feed.Variant, error) {
	var meta struct {
		DisableLocalTimeline  bool `json:"disableLocalTimeline"`
		DisableGlobalTimeline bool `json:"disableGlobalTimeline"`
	}
	if err := c.post(ctx, "meta", "meta", map[string]any{"i": c.cfg.Token}, &meta); err != nil {
		return nil, err
	}
	permitted := []feed.Variant{feed.VariantHome}
	if !meta.DisableLocalTimeline {
		permitted = append(permitted, feed.VariantLocal, feed.VariantSocial)
	}
	if !meta.DisableGlobalTimeline {
		permitted = append(permitted, feed.VariantGlobal)
	}
	return permitted, nil
}

func (c *Client) post(ctx context.Context, op, endpoint string, body map[string]any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &feed.TransportError{Class: feed.ClassGeneric, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+"/api/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return &feed.TransportError{Class: feed.ClassGeneric, Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &feed.TransportError{Class: feed.ClassNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &feed.TransportError{Class: feed.ClassNetwork, Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return classifyResponse(op, resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &feed.TransportError{Class: feed.ClassGeneric, Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// apiError is the server's error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// classifyResponse buckets an API error into the engine's error classes.
func classifyResponse(op string, status int, body []byte) *feed.TransportError {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	code := ae.Error.Code

	class := feed.ClassGeneric
	switch {
	case strings.Contains(code, "DISABLED"):
		class = feed.ClassDisabled
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		class = feed.ClassPermission
	case status == http.StatusNotFound:
		class = feed.ClassNotFound
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		class = feed.ClassNetwork
	}

	err := fmt.Errorf("server returned %d", status)
	if code != "" {
		err = fmt.Errorf("server returned %d (%s): %s", status, code, ae.Error.Message)
	}
	return &feed.TransportError{Class: class, Op: op, Err: err}
}
