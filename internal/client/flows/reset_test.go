package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/client/gateway"
	"github.com/amolsr/authmatrix-client/internal/client/otp"
)

type fakeResetAPI struct {
	sendErr   error
	sendEmail string
	sendCalls int
	onSend    func()

	resetErr      error
	resetEmail    string
	resetOTP      string
	resetPassword string
	resetCalls    int
	onReset       func()
}

func (f *fakeResetAPI) SendResetOTP(ctx context.Context, email string) error {
	f.sendCalls++
	f.sendEmail = email
	if f.onSend != nil {
		f.onSend()
	}
	return f.sendErr
}

func (f *fakeResetAPI) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	f.resetCalls++
	f.resetEmail = email
	f.resetOTP = otp
	f.resetPassword = newPassword
	if f.onReset != nil {
		f.onReset()
	}
	return f.resetErr
}

// advanceToCode walks a fresh controller to StageCode.
func advanceToCode(t *testing.T, c *ResetController) {
	t.Helper()
	require.NoError(t, c.SubmitEmail(context.Background(), "a@b.com"))
	require.Equal(t, StageCode, c.Stage())
}

func TestReset_HappyPath(t *testing.T) {
	api := &fakeResetAPI{}
	c := NewReset(api, zap.NewNop())

	require.NoError(t, c.SubmitEmail(context.Background(), "a@b.com"))
	assert.Equal(t, "a@b.com", api.sendEmail)
	assert.Equal(t, StageCode, c.Stage())

	c.Challenge.OnPaste("654321")
	require.NoError(t, c.ConfirmCode(context.Background()))
	assert.Equal(t, StagePassword, c.Stage())
	// Accepting the code is local; no request leaves the client here.
	assert.Equal(t, 1, api.sendCalls)
	assert.Zero(t, api.resetCalls)

	dest, err := c.SubmitPassword(context.Background(), "n3w-secret")
	require.NoError(t, err)
	assert.Equal(t, DestLogin, dest)
	assert.Equal(t, StageDone, c.Stage())
	assert.Equal(t, "a@b.com", api.resetEmail)
	assert.Equal(t, "654321", api.resetOTP)
	assert.Equal(t, "n3w-secret", api.resetPassword)
}

func TestReset_StagesAreGated(t *testing.T) {
	c := NewReset(&fakeResetAPI{}, zap.NewNop())

	assert.ErrorIs(t, c.ConfirmCode(context.Background()), ErrWrongStage)
	_, err := c.SubmitPassword(context.Background(), "pw")
	assert.ErrorIs(t, err, ErrWrongStage)

	advanceToCode(t, c)
	assert.ErrorIs(t, c.SubmitEmail(context.Background(), "b@c.com"), ErrWrongStage)
	_, err = c.SubmitPassword(context.Background(), "pw")
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestReset_SendFailureStaysOnEmailStage(t *testing.T) {
	api := &fakeResetAPI{sendErr: &gateway.Error{
		Kind:    gateway.KindBadRequest,
		Message: "Email is required",
	}}
	c := NewReset(api, zap.NewNop())

	err := c.SubmitEmail(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, StageEmail, c.Stage())
	assert.Equal(t, "Email is required", c.Err())
}

func TestReset_IncompleteCodeStaysOnCodeStage(t *testing.T) {
	c := NewReset(&fakeResetAPI{}, zap.NewNop())
	advanceToCode(t, c)
	c.Challenge.OnPaste("12")

	err := c.ConfirmCode(context.Background())

	require.ErrorIs(t, err, otp.ErrIncompleteCode)
	assert.Equal(t, StageCode, c.Stage())
}

func TestReset_FailedFinalSubmissionKeepsEmailAndCode(t *testing.T) {
	api := &fakeResetAPI{resetErr: &gateway.Error{
		Kind:    gateway.KindBadRequest,
		Message: "Invalid OTP",
	}}
	c := NewReset(api, zap.NewNop())
	advanceToCode(t, c)
	c.Challenge.OnPaste("654321")
	require.NoError(t, c.ConfirmCode(context.Background()))

	dest, err := c.SubmitPassword(context.Background(), "first-try")
	require.Error(t, err)
	assert.Equal(t, DestNone, dest)
	assert.Equal(t, StagePassword, c.Stage())
	assert.Equal(t, "Invalid OTP", c.Err())

	// Retrying reuses the collected email and code without a fresh OTP round.
	api.resetErr = nil
	dest, err = c.SubmitPassword(context.Background(), "second-try")
	require.NoError(t, err)
	assert.Equal(t, DestLogin, dest)
	assert.Equal(t, "a@b.com", api.resetEmail)
	assert.Equal(t, "654321", api.resetOTP)
	assert.Equal(t, 1, api.sendCalls)
}

func TestReset_ReentrantSubmitIsRejected(t *testing.T) {
	var c *ResetController
	api := &fakeResetAPI{}
	api.onSend = func() {
		err := c.SubmitEmail(context.Background(), "other@b.com")
		assert.ErrorIs(t, err, ErrBusy)
	}
	c = NewReset(api, zap.NewNop())

	require.NoError(t, c.SubmitEmail(context.Background(), "a@b.com"))
	assert.Equal(t, 1, api.sendCalls)
}

func TestReset_ClosedControllerDiscardsContinuation(t *testing.T) {
	var c *ResetController
	api := &fakeResetAPI{}
	api.onSend = func() { c.Close() }
	c = NewReset(api, zap.NewNop())

	err := c.SubmitEmail(context.Background(), "a@b.com")

	require.NoError(t, err)
	assert.Equal(t, StageEmail, c.Stage(), "a closed controller must not advance")
}
