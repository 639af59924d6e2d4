// Package gateway is the sole channel through which the client talks to the
// AuthMatrix backend. It attaches the ambient session credential to every
// request and normalizes transport failures, non-2xx responses, and
// malformed payloads into a small closed set of error kinds.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/models"
)

// CredentialSource supplies the current bearer token, or the empty string
// when the client relies on the ambient cookie session only.
type CredentialSource interface {
	Token() string
}

// CredentialFunc adapts a function to the CredentialSource interface.
type CredentialFunc func() string

// Token implements CredentialSource.
func (f CredentialFunc) Token() string { return f() }

// Client issues all backend operations. Callers never manage credential
// headers or inspect status codes themselves.
type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialSource
	log     *zap.Logger

	// onUnauthorized runs once per Unauthorized response from an
	// authenticated endpoint, so session death is handled in one place.
	onUnauthorized func()
}

// New creates a gateway Client for the backend at baseURL. httpClient should
// carry a cookie jar so the backend session cookie travels automatically.
func New(baseURL string, httpClient *http.Client, creds CredentialSource, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		creds:   creds,
		log:     log,
	}
}

// SetUnauthorizedHook registers the callback invoked when an authenticated
// call comes back Unauthorized. Wire this to the session store's Clear.
func (c *Client) SetUnauthorizedHook(fn func()) {
	c.onUnauthorized = fn
}

// Register creates a new account. The backend answers 201 with the profile.
func (c *Client) Register(ctx context.Context, name, email, password string) (models.UserProfile, error) {
	var profile models.UserProfile
	body, err := c.do(ctx, http.MethodPost, "/register", models.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, false)
	if err != nil {
		return profile, err
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return profile, c.malformed("/register", err)
	}
	return profile, nil
}

// Login exchanges credentials for a session cookie and a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var auth models.AuthResponse
	body, err := c.do(ctx, http.MethodPost, "/login", models.AuthRequest{
		Email:    email,
		Password: password,
	}, false)
	if err != nil {
		return auth, err
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		return auth, c.malformed("/login", err)
	}
	return auth, nil
}

// Logout invalidates the backend session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/logout", nil, true)
	return err
}

// CheckSession asks the backend whether the ambient credential still names
// an authenticated session.
func (c *Client) CheckSession(ctx context.Context) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/is-authenticated", nil, true)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(body, &ok); err != nil {
		return false, c.malformed("/is-authenticated", err)
	}
	return ok, nil
}

// Profile fetches the account profile for the current session.
func (c *Client) Profile(ctx context.Context) (models.UserProfile, error) {
	var profile models.UserProfile
	body, err := c.do(ctx, http.MethodGet, "/profile", nil, true)
	if err != nil {
		return profile, err
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return profile, c.malformed("/profile", err)
	}
	return profile, nil
}

// SendVerifyOTP asks the backend to email a verification code to the
// current session's address.
func (c *Client) SendVerifyOTP(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/send-otp", nil, true)
	return err
}

// VerifyOTP submits an assembled verification code.
func (c *Client) VerifyOTP(ctx context.Context, code string) error {
	_, err := c.do(ctx, http.MethodPost, "/verify-otp", models.VerifyOTPRequest{OTP: code}, true)
	return err
}

// SendResetOTP asks the backend to email a password-reset code. No session
// is required; the email travels as a query parameter.
func (c *Client) SendResetOTP(ctx context.Context, email string) error {
	path := "/send-reset-otp?email=" + url.QueryEscape(email)
	_, err := c.do(ctx, http.MethodPost, path, nil, false)
	return err
}

// ResetPassword submits the combined code-plus-new-password request.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	_, err := c.do(ctx, http.MethodPost, "/reset-password", models.ResetPasswordRequest{
		Email:       email,
		OTP:         otp,
		NewPassword: newPassword,
	}, false)
	return err
}

// do performs one backend call. authed marks endpoints whose Unauthorized
// response means the session died; the bearer token is attached whenever
// one is available regardless.
func (c *Client) do(ctx context.Context, method, path string, payload any, authed bool) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend unreachable",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, &Error{Kind: KindNetworkError, cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetworkError, cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	gerr := &Error{Message: messageFrom(body)}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		gerr.Kind = KindUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		gerr.Kind = KindForbidden
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		gerr.Kind = KindBadRequest
	default:
		gerr.Kind = KindServerError
	}

	c.log.Debug("backend call failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("kind", gerr.Kind.String()))

	if gerr.Kind == KindUnauthorized && authed && c.onUnauthorized != nil {
		c.onUnauthorized()
	}
	return nil, gerr
}

// malformed normalizes an undecodable success payload.
func (c *Client) malformed(path string, err error) error {
	c.log.Warn("malformed backend response", zap.String("path", path), zap.Error(err))
	return &Error{Kind: KindServerError, Message: "unexpected response from server", cause: err}
}
