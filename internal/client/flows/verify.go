package flows

import (
	"context"

	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/client/gateway"
	"github.com/amolsr/authmatrix-client/internal/client/otp"
	"github.com/amolsr/authmatrix-client/internal/client/session"
)

// verifyAPI is the slice of the gateway the verification flow depends on.
type verifyAPI interface {
	VerifyOTP(ctx context.Context, code string) error
	SendVerifyOTP(ctx context.Context) error
}

// verifySession is the slice of the session store the verification flow
// reads and mutates.
type verifySession interface {
	State() session.State
	FetchProfile(ctx context.Context) error
	Clear()
}

// VerifyController drives the email verification screen: a six-slot code
// entry submitted against the verify endpoint, plus the companion resend
// action exposed from the session-aware chrome.
type VerifyController struct {
	api     verifyAPI
	session verifySession
	log     *zap.Logger

	// Challenge is the code entry state, rendered by the hosting surface.
	Challenge *otp.Challenge

	loading   bool
	resending bool
	errMsg    string
	closed    bool
}

// NewVerify creates a VerifyController whose challenge submits against the
// email verification endpoint.
func NewVerify(api verifyAPI, sess verifySession, log *zap.Logger) *VerifyController {
	c := &VerifyController{api: api, session: sess, log: log}
	c.Challenge = otp.New(otp.SubmitterFunc(func(ctx context.Context, code string) error {
		return api.VerifyOTP(ctx, code)
	}))
	return c
}

// Mount is the entry guard: an already-verified authenticated user has
// nothing to do here and is redirected straight to the landing view.
func (c *VerifyController) Mount() Destination {
	st := c.session.State()
	if st.Authenticated && st.Profile != nil && st.Profile.IsAccountVerified {
		return DestLanding
	}
	return DestNone
}

// Loading reports whether a code submission is outstanding.
func (c *VerifyController) Loading() bool { return c.loading }

// Err returns the message from the last rejected submission, if any.
func (c *VerifyController) Err() string { return c.errMsg }

// Close discards continuations of calls still in flight.
func (c *VerifyController) Close() { c.closed = true }

// Submit sends the assembled code to the backend. An accepted code
// refreshes the profile and leads to the landing view; a rejected code
// keeps the slots editable with the error shown.
func (c *VerifyController) Submit(ctx context.Context) (Destination, error) {
	if c.loading {
		return DestNone, ErrBusy
	}
	c.loading = true
	defer func() { c.loading = false }()

	err := c.Challenge.Submit(ctx)
	if c.closed {
		return DestNone, nil
	}
	if err != nil {
		c.errMsg = userMessage(err)
		return DestNone, err
	}

	c.errMsg = ""
	if err := c.session.FetchProfile(ctx); err != nil {
		c.log.Warn("profile refresh after verification failed", zap.Error(err))
	}
	return DestLanding, nil
}

// ResendCode asks the backend to email a fresh verification code. It keeps
// its own in-flight guard so stray clicks cannot queue duplicate sends. An
// expired session here invalidates the whole session and redirects to
// login.
func (c *VerifyController) ResendCode(ctx context.Context) (Destination, error) {
	if c.resending {
		return DestNone, ErrBusy
	}
	c.resending = true
	defer func() { c.resending = false }()

	err := c.api.SendVerifyOTP(ctx)
	if c.closed {
		return DestNone, nil
	}
	if err != nil {
		if gateway.IsUnauthorized(err) {
			c.session.Clear()
			return DestLogin, err
		}
		return DestNone, err
	}
	return DestNone, nil
}
