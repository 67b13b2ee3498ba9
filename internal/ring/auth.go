package ring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ErrTwoFactorRequired is returned by Authenticate when Ring wants a
// one-time code. Call AuthenticateWithCode with the code the user received.
var ErrTwoFactorRequired = errors.New("ring: two-factor code required")

// Token is the credential blob persisted to the token cache file. It must
// be rewritten whenever Ring rotates the refresh token.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	FetchedAt    time.Time `json:"fetched_at"`

	// HardwareID identifies this installation to Ring. Generated once and
	// kept for the lifetime of the cache file; changing it invalidates the
	// session server-side.
	HardwareID string `json:"hardware_id"`
}

// Expired reports whether the access token is past (or within a minute of)
// its expiry.
func (t *Token) Expired() bool {
	if t.ExpiresIn <= 0 {
		return true
	}
	deadline := t.FetchedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	return time.Now().After(deadline.Add(-time.Minute))
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Authenticate establishes a session. A cached token is reloaded and used
// as-is (refreshing if stale); otherwise the password grant runs. If Ring
// demands a one-time code the error is ErrTwoFactorRequired and the caller
// should retry via AuthenticateWithCode.
func (c *Client) Authenticate(ctx context.Context) error {
	if tok, err := loadToken(c.cfg.TokenFile); err == nil && tok != nil {
		c.token = tok
		if tok.Expired() {
			if err := c.refreshToken(ctx); err != nil {
				return fmt.Errorf("refresh cached token: %w", err)
			}
		}
		c.http.SetAuthToken(c.token.AccessToken)
		return nil
	}
	return c.passwordGrant(ctx, "")
}

// AuthenticateWithCode retries the password grant with a 2FA code.
func (c *Client) AuthenticateWithCode(ctx context.Context, code string) error {
	return c.passwordGrant(ctx, code)
}

func (c *Client) passwordGrant(ctx context.Context, twoFACode string) error {
	hardwareID := uuid.New().String()
	if c.token != nil && c.token.HardwareID != "" {
		hardwareID = c.token.HardwareID
	}

	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type": "password",
			"client_id":  oauthClientID,
			"username":   c.cfg.Username,
			"password":   c.cfg.Password,
		}).
		SetHeader("hardware_id", hardwareID)
	if twoFACode != "" {
		req.SetHeader("2fa-code", twoFACode)
	}

	return c.fetchToken(req, hardwareID)
}

func (c *Client) refreshToken(ctx context.Context) error {
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"client_id":     oauthClientID,
			"refresh_token": c.token.RefreshToken,
		}).
		SetHeader("hardware_id", c.token.HardwareID)

	return c.fetchToken(req, c.token.HardwareID)
}

func (c *Client) fetchToken(req *resty.Request, hardwareID string) error {
	var tr tokenResponse
	resp, err := req.SetResult(&tr).Post(c.oauthURL)
	if err != nil {
		return fmt.Errorf("oauth request: %w", err)
	}
	if resp.StatusCode() == 412 {
		// Ring answers 412 Precondition Failed when a one-time code is
		// needed and has been sent to the account owner.
		return ErrTwoFactorRequired
	}
	if resp.IsError() {
		return fmt.Errorf("oauth token: status %d: %s", resp.StatusCode(), resp.String())
	}
	if tr.AccessToken == "" {
		return errors.New("oauth token: empty access token in response")
	}

	c.token = &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn,
		FetchedAt:    time.Now(),
		HardwareID:   hardwareID,
	}
	c.http.SetAuthToken(c.token.AccessToken)

	if err := saveToken(c.cfg.TokenFile, c.token); err != nil {
		return fmt.Errorf("save token cache: %w", err)
	}
	return nil
}

// ensureToken refreshes the access token if it is stale. Called before
// every API request.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token == nil {
		return errors.New("ring: not authenticated")
	}
	if !c.token.Expired() {
		return nil
	}
	return c.refreshToken(ctx)
}

func loadToken(path string) (*Token, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token cache: %w", err)
	}
	if tok.AccessToken == "" || tok.RefreshToken == "" {
		return nil, errors.New("token cache missing credentials")
	}
	return &tok, nil
}

func saveToken(path string, tok *Token) error {
	if path == "" {
		return nil
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
