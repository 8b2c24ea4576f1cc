// Package identity resolves marketplace user references against the user
// directory service.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rentwise/rentwise-backend/pkg/config"
	pkgerrors "github.com/rentwise/rentwise-backend/pkg/errors"
)

const (
	defaultTimeout        = 5 * time.Second
	defaultCacheSize      = 1024
	bodyReadLimit   int64 = 1024
)

// ErrNotFound means the directory has no user, or no email, for the reference.
var ErrNotFound = errors.New("identity: user not found")

// User is the subset of the directory record the platform needs.
type User struct {
	Ref   string `json:"-"`
	Email string `json:"email"`
}

// Client looks users up by reference: GET {base}/user/user-details/{ref}/.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      *expirable.LRU[string, User]
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a directory client. Successful lookups are cached for
// cfg.CacheTTL; misses are always retried.
func NewClient(cfg config.IdentityConfig, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity base url is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid identity base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	size := cfg.CacheMax
	if size <= 0 {
		size = defaultCacheSize
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		cache:      expirable.NewLRU[string, User](size, nil, cfg.CacheTTL),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// LookupEmail returns the email registered for ref.
func (c *Client) LookupEmail(ctx context.Context, ref string) (string, error) {
	user, err := c.Lookup(ctx, ref)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

// Lookup fetches the directory record for ref.
func (c *Client) Lookup(ctx context.Context, ref string) (User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return User{}, ErrNotFound
	}
	if cached, ok := c.cache.Get(ref); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/user/user-details/%s/", c.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build identity request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute identity request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return User{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, bodyReadLimit))
		code := pkgerrors.CodeDependency
		// A 4xx other than throttling will not change on retry.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			code = pkgerrors.CodeValidation
		}
		return User{}, pkgerrors.Wrap(code,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "identity request failed")
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return User{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode identity response")
	}
	if strings.TrimSpace(user.Email) == "" {
		return User{}, ErrNotFound
	}
	user.Ref = ref
	c.cache.Add(ref, user)
	return user, nil
}
