package flows

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/client/otp"
)

// Stage identifies the current step of the password reset flow.
type Stage int

const (
	// StageEmail collects the address to send the reset code to.
	StageEmail Stage = iota
	// StageCode collects the six-digit reset code.
	StageCode
	// StagePassword collects the replacement password.
	StagePassword
	// StageDone means the reset completed.
	StageDone
)

// resetAPI is the slice of the gateway the reset flow depends on. Neither
// operation requires a session; the flow is reachable while logged out.
type resetAPI interface {
	SendResetOTP(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

// ErrWrongStage is returned when a step is submitted out of order.
var ErrWrongStage = errors.New("reset flow is not at that step")

// ResetController drives the three sequential reset stages. Each stage is
// gated on the success of the previous one, and the collected email and
// code survive a failed final submission so the OTP is never re-requested.
type ResetController struct {
	api resetAPI
	log *zap.Logger

	// Challenge is the code entry state for StageCode. Its submitter is
	// local only: acceptance stores the assembled code without touching
	// the network, because the backend validates code and new password
	// together in the final request.
	Challenge *otp.Challenge

	stage   Stage
	email   string
	code    string
	loading bool
	errMsg  string
	closed  bool
}

// NewReset creates a ResetController at StageEmail.
func NewReset(api resetAPI, log *zap.Logger) *ResetController {
	c := &ResetController{api: api, log: log}
	c.Challenge = otp.New(otp.SubmitterFunc(func(_ context.Context, code string) error {
		c.code = code
		return nil
	}))
	return c
}

// Stage returns the current step.
func (c *ResetController) Stage() Stage { return c.stage }

// Email returns the address collected in StageEmail.
func (c *ResetController) Email() string { return c.email }

// Loading reports whether a network call is outstanding.
func (c *ResetController) Loading() bool { return c.loading }

// Err returns the message from the last failed step, if any.
func (c *ResetController) Err() string { return c.errMsg }

// Close discards continuations of calls still in flight.
func (c *ResetController) Close() { c.closed = true }

// SubmitEmail requests a reset code for email and, on success, advances to
// the code entry stage.
func (c *ResetController) SubmitEmail(ctx context.Context, email string) error {
	if c.stage != StageEmail {
		return ErrWrongStage
	}
	if c.loading {
		return ErrBusy
	}
	c.loading = true
	defer func() { c.loading = false }()

	err := c.api.SendResetOTP(ctx, email)
	if c.closed {
		return nil
	}
	if err != nil {
		c.errMsg = userMessage(err)
		return err
	}

	c.email = email
	c.errMsg = ""
	c.stage = StageCode
	return nil
}

// ConfirmCode accepts the entered code locally and advances to the
// password stage. Only completeness is checked here; correctness is
// decided by the backend in SubmitPassword.
func (c *ResetController) ConfirmCode(ctx context.Context) error {
	if c.stage != StageCode {
		return ErrWrongStage
	}
	if err := c.Challenge.Submit(ctx); err != nil {
		c.errMsg = userMessage(err)
		return err
	}
	c.errMsg = ""
	c.stage = StagePassword
	return nil
}

// SubmitPassword posts the combined email, code and new password. Success
// finishes the flow and navigates to login; failure stays on the password
// stage with email and code retained.
func (c *ResetController) SubmitPassword(ctx context.Context, newPassword string) (Destination, error) {
	if c.stage != StagePassword {
		return DestNone, ErrWrongStage
	}
	if c.loading {
		return DestNone, ErrBusy
	}
	c.loading = true
	defer func() { c.loading = false }()

	err := c.api.ResetPassword(ctx, c.email, c.code, newPassword)
	if c.closed {
		return DestNone, nil
	}
	if err != nil {
		c.errMsg = userMessage(err)
		return DestNone, err
	}

	c.errMsg = ""
	c.stage = StageDone
	return DestLogin, nil
}
