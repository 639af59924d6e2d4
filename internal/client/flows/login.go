package flows

import (
	"context"

	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/models"
)

// Mode selects between the two faces of the combined login/register form.
type Mode int

const (
	// ModeLogin authenticates an existing account.
	ModeLogin Mode = iota
	// ModeRegister creates a new account.
	ModeRegister
)

// authAPI is the slice of the gateway the login flow depends on.
type authAPI interface {
	Login(ctx context.Context, email, password string) (models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (models.UserProfile, error)
}

// authSession is the slice of the session store the login flow mutates.
type authSession interface {
	SetAuthenticated(profile models.UserProfile, token string)
	FetchProfile(ctx context.Context) error
}

// LoginController drives the combined login/register form.
type LoginController struct {
	api     authAPI
	session authSession
	log     *zap.Logger

	// Name, Email and Password mirror the form fields.
	Name     string
	Email    string
	Password string

	mode    Mode
	loading bool
	errMsg  string
	closed  bool
}

// NewLogin creates a LoginController starting in ModeLogin.
func NewLogin(api authAPI, session authSession, log *zap.Logger) *LoginController {
	return &LoginController{api: api, session: session, log: log}
}

// Mode returns the active form mode.
func (c *LoginController) Mode() Mode { return c.mode }

// SetMode toggles between login and register. Switching clears the error
// and the entered password but keeps the email for convenience.
func (c *LoginController) SetMode(m Mode) {
	if m == c.mode {
		return
	}
	c.mode = m
	c.errMsg = ""
	c.Password = ""
}

// Loading reports whether a submission is outstanding.
func (c *LoginController) Loading() bool { return c.loading }

// Err returns the message from the last failed submission, if any.
func (c *LoginController) Err() string { return c.errMsg }

// Close marks the controller's surface as gone. Continuations of calls
// still in flight are discarded instead of mutating dead UI state.
func (c *LoginController) Close() { c.closed = true }

// Submit posts the form in the active mode. In ModeRegister a created
// account leads to the landing view without authenticating; in ModeLogin a
// successful login records the session and leads to the landing view.
// Failures surface the normalized gateway message.
func (c *LoginController) Submit(ctx context.Context) (Destination, error) {
	if c.loading {
		return DestNone, ErrBusy
	}
	c.loading = true
	defer func() { c.loading = false }()

	if c.mode == ModeRegister {
		_, err := c.api.Register(ctx, c.Name, c.Email, c.Password)
		if c.closed {
			return DestNone, nil
		}
		if err != nil {
			c.errMsg = userMessage(err)
			return DestNone, err
		}
		c.errMsg = ""
		return DestLanding, nil
	}

	auth, err := c.api.Login(ctx, c.Email, c.Password)
	if c.closed {
		return DestNone, nil
	}
	if err != nil {
		c.errMsg = userMessage(err)
		return DestNone, err
	}

	c.session.SetAuthenticated(models.UserProfile{Email: auth.Email}, auth.Token)
	if err := c.session.FetchProfile(ctx); err != nil {
		// The session is established; a failed profile fetch only delays
		// the greeting until the next re-fetch.
		c.log.Warn("profile fetch after login failed", zap.Error(err))
	}
	c.errMsg = ""
	return DestLanding, nil
}
