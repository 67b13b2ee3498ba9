// Package ring is a minimal client for the Ring cloud API: OAuth password
// grant with token caching, device enumeration, per-device event history,
// and recording/snapshot retrieval.
package ring

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAPIBase  = "https://api.ring.com"
	defaultOAuthURL = "https://oauth.ring.com/oauth/token"

	// oauthClientID is the client identifier the official apps use for the
	// password grant.
	oauthClientID = "ring_official_android"
)

type Config struct {
	Username  string
	Password  string
	TokenFile string
	UserAgent string

	// BaseURL and OAuthURL override the Ring endpoints, for tests.
	BaseURL  string
	OAuthURL string
}

type Client struct {
	http     *resty.Client
	cfg      Config
	oauthURL string
	token    *Token
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultAPIBase
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = defaultOAuthURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ringwatch/1.0"
	}

	r := resty.New()
	r.SetBaseURL(cfg.BaseURL)
	r.SetHeader("User-Agent", cfg.UserAgent)
	r.SetTimeout(30 * time.Second)

	return &Client{
		http:     r,
		cfg:      cfg,
		oauthURL: cfg.OAuthURL,
	}
}

// Token returns the client's current token, nil before authentication.
func (c *Client) Token() *Token {
	return c.token
}
