// Package flows contains the multi-step authentication flows: login and
// registration, email verification, and password reset. Each controller is
// a small state machine over the gateway, the session store, and the otp
// engine. Controllers never navigate themselves; they return the desired
// Destination so the hosting surface stays in charge of routing.
package flows

import (
	"errors"

	"github.com/amolsr/authmatrix-client/internal/client/gateway"
)

// Destination is a flow controller's requested navigation target.
type Destination int

const (
	// DestNone means stay on the current surface.
	DestNone Destination = iota
	// DestLanding is the authenticated landing view.
	DestLanding
	// DestLogin is the login form.
	DestLogin
)

// ErrBusy is returned when a submission is attempted while another request
// from the same flow instance is still outstanding.
var ErrBusy = errors.New("another request is already in flight")

// userMessage maps an error onto the text for a transient notification.
func userMessage(err error) string {
	var ge *gateway.Error
	if errors.As(err, &ge) {
		return ge.UserMessage()
	}
	return err.Error()
}
