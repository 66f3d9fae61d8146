package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"wordxl/internal/config"
	"wordxl/internal/logging"
	"wordxl/internal/services"
)

const (
	defaultCheckTimeout = 5 * time.Second

	loginPath  = "/api/auth/login/"
	logoutPath = "/api/auth/logout/"
	checkPath  = "/api/auth/check/"
)

// ErrNotAuthenticated means no usable identity: the backend denied the
// session, or it could not be reached and nothing was cached.
var ErrNotAuthenticated = errors.New("not authenticated")

// HTTPDoer describes the HTTP client used by the auth client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Identity is the outcome of Check. Verified is false when the user came
// from the cache because the backend could not be reached.
type Identity struct {
	User     User
	Verified bool
}

type envelope struct {
	Success       bool   `json:"success"`
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
	User          *User  `json:"user"`
}

// Client talks to the authentication endpoints.
type Client struct {
	baseURL      string
	store        Store
	client       HTTPDoer
	logger       *slog.Logger
	checkTimeout time.Duration

	mu sync.Mutex
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCheckTimeout overrides the check deadline (default 5s).
func WithCheckTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.checkTimeout = d
		}
	}
}

// NewClient constructs a client persisting to store.
func NewClient(baseURL string, store Store, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		store:        store,
		client:       http.DefaultClient,
		logger:       logging.NewNop(),
		checkTimeout: defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "auth")
	return c
}

// NewFromConfig builds a client from the [auth] section.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	base := []Option{WithCheckTimeout(cfg.AuthCheckTimeout())}
	return NewClient(cfg.Auth.BaseURL, NewFileStore(cfg.Auth.StatePath), append(base, opts...)...)
}

// Cached returns the cached user without contacting the backend.
func (c *Client) Cached() (*User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return state.User, nil
}

// Login authenticates with email and password and caches the user.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, services.Wrap(services.ErrValidation, "auth", "login", "email and password are required", nil)
	}
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return User{}, fmt.Errorf("encode login request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.Load()
	if err != nil {
		return User{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, loginPath, bytes.NewReader(body), state)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return User{}, services.Wrap(services.ErrTransport, "auth", "login", "request failed", err)
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success || env.User == nil {
		message := strings.TrimSpace(env.Message)
		if message == "" {
			message = fmt.Sprintf("login failed (http %d)", resp.StatusCode)
		}
		marker := services.ErrRemote
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
			marker = services.ErrUnauthorized
		}
		return User{}, services.Wrap(marker, "auth", "login", message, nil)
	}
	if decodeErr != nil {
		return User{}, services.Wrap(services.ErrRemote, "auth", "login", "decode response", decodeErr)
	}

	state.User = env.User
	state.Cookies = mergeCookies(state.Cookies, resp.Cookies(), time.Now())
	if err := c.save(state); err != nil {
		return User{}, err
	}
	c.logger.Info("signed in", logging.String("email", env.User.Email))
	return *env.User, nil
}

// Logout ends the backend session. The cache is cleared whatever the
// backend answers; only a failure to clear the cache is returned.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.Load()
	if err != nil {
		c.logger.Warn("auth state unreadable during logout", logging.Error(err))
		state = State{}
	}
	if req, err := c.newRequest(ctx, http.MethodPost, logoutPath, nil, state); err == nil {
		resp, err := c.client.Do(req)
		if err != nil {
			logging.WarnWithContext(c.logger, "logout request failed", "auth_logout_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "local session cleared; backend session may persist until it expires"),
			)
		} else {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode >= 300 {
				logging.WarnWithContext(c.logger, "logout rejected", "auth_logout_failed",
					logging.Int("status", resp.StatusCode),
					logging.String(logging.FieldImpact, "local session cleared"),
				)
			}
		}
	}
	return c.store.Clear()
}

// Check verifies the session with a bounded wait. When the backend answers,
// its verdict wins. When it cannot be reached, a cached user is trusted.
func (c *Client) Check(ctx context.Context) (Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.Load()
	if err != nil {
		c.logger.Warn("auth state unreadable; ignoring cache", logging.Error(err))
		state = State{}
	}

	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	env, cookies, err := c.check(checkCtx, state)
	if err != nil {
		if state.User == nil {
			c.logger.Debug("auth check incomplete and no cached user", logging.Error(err))
			return Identity{}, ErrNotAuthenticated
		}
		logging.WarnWithContext(c.logger, "auth check incomplete; using cached user", "auth_check_degraded",
			logging.Error(err),
			logging.String("email", state.User.Email),
			logging.String(logging.FieldErrorHint, "start the backend or check auth.base_url"),
			logging.String(logging.FieldImpact, "identity not verified"),
		)
		return Identity{User: *state.User, Verified: false}, nil
	}

	if env.Success && env.Authenticated && env.User != nil {
		state.User = env.User
		state.Cookies = mergeCookies(state.Cookies, cookies, time.Now())
		if err := c.save(state); err != nil {
			return Identity{}, err
		}
		return Identity{User: *env.User, Verified: true}, nil
	}

	if err := c.store.Clear(); err != nil {
		return Identity{}, err
	}
	return Identity{}, ErrNotAuthenticated
}

func (c *Client) check(ctx context.Context, state State) (envelope, []*http.Cookie, error) {
	req, err := c.newRequest(ctx, http.MethodGet, checkPath, nil, state)
	if err != nil {
		return envelope{}, nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return envelope{}, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return envelope{}, nil, fmt.Errorf("auth check returned %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return envelope{}, nil, fmt.Errorf("decode auth check: %w", err)
	}
	return env, resp.Cookies(), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, state State) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "build request", c.baseURL+path, err)
	}
	req.Header.Set("Accept", "application/json")
	now := time.Now()
	for _, ck := range state.Cookies {
		if !ck.Expires.IsZero() && ck.Expires.Before(now) {
			continue
		}
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return req, nil
}

func (c *Client) save(state State) error {
	state.SavedAt = time.Now().UTC()
	return c.store.Save(state)
}

// mergeCookies applies Set-Cookie headers to the saved set by name. Deleted
// or expired cookies are dropped.
func mergeCookies(saved []Cookie, incoming []*http.Cookie, now time.Time) []Cookie {
	byName := make(map[string]int, len(saved))
	out := make([]Cookie, 0, len(saved)+len(incoming))
	for _, ck := range saved {
		byName[ck.Name] = len(out)
		out = append(out, ck)
	}
	for _, hc := range incoming {
		expires := hc.Expires
		if hc.MaxAge > 0 {
			expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		}
		deleted := hc.MaxAge < 0 || (!expires.IsZero() && expires.Before(now))
		ck := Cookie{
			Name:     hc.Name,
			Value:    hc.Value,
			Path:     hc.Path,
			Expires:  expires,
			Secure:   hc.Secure,
			HTTPOnly: hc.HttpOnly,
		}
		idx, exists := byName[hc.Name]
		switch {
		case exists && deleted:
			out[idx].Name = ""
		case exists:
			out[idx] = ck
		case !deleted:
			byName[hc.Name] = len(out)
			out = append(out, ck)
		}
	}
	kept := out[:0]
	for _, ck := range out {
		if ck.Name != "" {
			kept = append(kept, ck)
		}
	}
	return kept
}
