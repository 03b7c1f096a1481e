// Package apiclient talks to the sales backend on behalf of a signed-in
// browser session: catalogue, transactions, merged sales statistics and
// filmmaker account creation.
package apiclient

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
	"time"

	"go.uber.org/zap"

	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/session"
)

// Backend endpoints.
const (
	MoviesPath     = "/api/movies"
	SalesPath      = "/api/dashboard/sales"
	OverviewPath   = "/api/dashboard/overview"
	ChartDataPath  = "/api/dashboard/chart-data"
	TopMoviesPath  = "/api/dashboard/top-movies"
	AdminUsersPath = "/api/admin/users"
)

// ErrDashboardData is returned by SalesStatistics when any of its three
// sources fails. No partial statistics are ever returned.
var ErrDashboardData = errors.New("failed to fetch dashboard data")

// StatusError is a non-2xx answer to a data request.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("failed to fetch %s: status %d", e.Op, e.Code) }

// Invalidator drops the local session after the backend answered 401.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Config holds the client's backend settings.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
	Now        func() time.Time
}

// Client issues backend requests with the browser session's token.
type Client struct {
	baseURL     string
	http        *http.Client
	logger      *zap.SugaredLogger
	now         func() time.Time
	store       *session.Store
	invalidator Invalidator
}

// New binds cfg to the browser session. inv is told about 401 answers; a
// nil inv clears the store directly.
func New(cfg Config, store *session.Store, inv Invalidator) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		http:        cfg.HTTPClient,
		logger:      cfg.Logger,
		now:         cfg.Now,
		store:       store,
		invalidator: inv,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Scope returns the effective scope of the stored user.
func (c *Client) Scope(ctx context.Context) Scope {
	u, _ := c.store.User(ctx)
	return ScopeFor(u)
}

// do sends one request. The token is attached when present; its absence
// is left for the backend to reject. The response body is read fully.
func (c *Client) do(ctx context.Context, op, method, path string, q url.Values, body any) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		rd = bytes.NewReader(b)
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok, ok := c.store.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	c.logger.Debugw("backend request", "op", op, "method", method, "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &auth.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &auth.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate(ctx)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) invalidate(ctx context.Context) {
	if c.invalidator != nil {
		c.invalidator.Invalidate(ctx)
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Errorw("clear rejected session", "error", err)
	}
}

// getJSON fetches path and decodes a 2xx body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	code, raw, err := c.do(ctx, op, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	if !success(code) {
		return &StatusError{Op: op, Code: code}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

func success(code int) bool { return code >= 200 && code <= 299 }
