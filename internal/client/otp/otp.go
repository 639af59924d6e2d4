// Package otp drives six single-digit entry slots as one logical one-time
// passcode, independent of which backend challenge the code answers. The
// Challenge is a plain value object with pure transition methods returning
// the next focus slot, so it can be unit-tested without any UI harness.
package otp

import (
	"context"
	"errors"
)

// Slots is the fixed number of digit slots in a challenge.
const Slots = 6

// SubmitState tracks where a challenge is in its submission lifecycle.
type SubmitState int

const (
	// Editing means the slots are open for input.
	Editing SubmitState = iota
	// Submitting means a submission is in flight.
	Submitting
	// Accepted means the last submission succeeded. Terminal until re-edit.
	Accepted
	// Rejected means the last submission failed. Terminal until re-edit.
	Rejected
)

// ErrIncompleteCode is returned by Submit when fewer than six digits are
// filled in. It is rejected locally; no network call is made.
var ErrIncompleteCode = errors.New("please enter the full 6-digit code")

// Submitter performs the backend submission for an assembled code.
type Submitter interface {
	Submit(ctx context.Context, code string) error
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, code string) error

// Submit implements Submitter.
func (f SubmitterFunc) Submit(ctx context.Context, code string) error {
	return f(ctx, code)
}

// Challenge holds the slot contents and submission state for one passcode
// attempt. The zero slot value is empty; filled slots hold exactly one
// digit character.
type Challenge struct {
	slots     [Slots]byte
	state     SubmitState
	submitter Submitter
}

// New creates a Challenge that submits assembled codes through submitter.
func New(submitter Submitter) *Challenge {
	return &Challenge{submitter: submitter}
}

// State returns the current submission state.
func (c *Challenge) State() SubmitState { return c.state }

// Slot returns the content of slot i: a single digit, or "" when empty.
func (c *Challenge) Slot(i int) string {
	if i < 0 || i >= Slots || c.slots[i] == 0 {
		return ""
	}
	return string(c.slots[i])
}

// OnDigit applies typed input to slot i and returns the slot that should
// receive focus next. Non-digit characters are stripped before storage; an
// input with no digit clears the slot. Accepting a digit in any slot but
// the last advances focus by one.
func (c *Challenge) OnDigit(slot int, input string) int {
	if slot < 0 || slot >= Slots {
		return slot
	}
	c.reopen()

	digit := firstDigit(input)
	if digit == 0 {
		c.slots[slot] = 0
		return slot
	}
	c.slots[slot] = digit
	if slot < Slots-1 {
		return slot + 1
	}
	return slot
}

// OnBackspace handles a Backspace press in slot i and returns the next
// focus slot. A filled slot is emptied in place; Backspace on an already
// empty slot moves focus back by one.
func (c *Challenge) OnBackspace(slot int) int {
	if slot < 0 || slot >= Slots {
		return slot
	}
	c.reopen()

	if c.slots[slot] != 0 {
		c.slots[slot] = 0
		return slot
	}
	if slot > 0 {
		return slot - 1
	}
	return slot
}

// OnPaste distributes pasted text across the slots starting at slot 0,
// overwriting existing contents, and returns the next focus slot: just past
// the last filled slot, or the final slot when everything was filled.
// Pasted input is filtered to digits, matching manual entry.
func (c *Challenge) OnPaste(text string) int {
	c.reopen()

	digits := make([]byte, 0, Slots)
	for i := 0; i < len(text) && len(digits) < Slots; i++ {
		if text[i] >= '0' && text[i] <= '9' {
			digits = append(digits, text[i])
		}
	}
	for i, d := range digits {
		c.slots[i] = d
	}
	if len(digits) < Slots {
		return len(digits)
	}
	return Slots - 1
}

// Assemble concatenates the filled slots in order.
func (c *Challenge) Assemble() string {
	out := make([]byte, 0, Slots)
	for _, b := range c.slots {
		if b != 0 {
			out = append(out, b)
		}
	}
	return string(out)
}

// Complete reports whether every slot holds a digit.
func (c *Challenge) Complete() bool {
	for _, b := range c.slots {
		if b == 0 {
			return false
		}
	}
	return true
}

// Submit validates the assembled code and hands it to the configured
// Submitter. An incomplete code is rejected locally with ErrIncompleteCode
// and the challenge stays editable. Otherwise the state runs
// Submitting → Accepted or Submitting → Rejected.
func (c *Challenge) Submit(ctx context.Context) error {
	if !c.Complete() {
		c.state = Editing
		return ErrIncompleteCode
	}

	c.state = Submitting
	if err := c.submitter.Submit(ctx, c.Assemble()); err != nil {
		c.state = Rejected
		return err
	}
	c.state = Accepted
	return nil
}

// reopen returns a terminal challenge to Editing on the next interaction.
func (c *Challenge) reopen() {
	if c.state == Accepted || c.state == Rejected {
		c.state = Editing
	}
}

func firstDigit(s string) byte {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return s[i]
		}
	}
	return 0
}
