package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/loopauth/internal/shared"
)

// Mode is how the user was asked to sign in.
type Mode string

const (
	ModeBrowser Mode = "browser"
	ModeDevice  Mode = "device"
)

// Outcome is how an attempt ended.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeTimedOut  Outcome = "timed_out"
)

var (
	modes    = []Mode{ModeBrowser, ModeDevice}
	outcomes = []Outcome{OutcomePending, OutcomeSucceeded, OutcomeFailed, OutcomeAbandoned, OutcomeTimedOut}
)

var _ Model = (*Attempt)(nil)

// Attempt records a single sign-in attempt.
type Attempt struct {
	id         string
	sequence   int
	port       int
	mode       Mode
	outcome    Outcome
	errMessage string
	startedAt  time.Time
	finishedAt *time.Time
}

// NewAttempt creates a pending attempt started now.
func NewAttempt(sequence int, mode Mode, port int) *Attempt {
	return &Attempt{
		sequence:  sequence,
		port:      port,
		mode:      mode,
		outcome:   OutcomePending,
		startedAt: time.Now().UTC(),
	}
}

func (a *Attempt) ID() string             { return a.id }
func (a *Attempt) Sequence() int          { return a.sequence }
func (a *Attempt) Port() int              { return a.port }
func (a *Attempt) Mode() Mode             { return a.mode }
func (a *Attempt) Outcome() Outcome       { return a.outcome }
func (a *Attempt) ErrorMessage() string   { return a.errMessage }
func (a *Attempt) CreatedAt() time.Time   { return a.startedAt }
func (a *Attempt) FinishedAt() *time.Time { return a.finishedAt }

func (a *Attempt) SetID(id string)          { a.id = id }
func (a *Attempt) SetSequence(seq int)      { a.sequence = seq }
func (a *Attempt) SetPort(port int)         { a.port = port }
func (a *Attempt) SetMode(mode Mode)        { a.mode = mode }
func (a *Attempt) SetStartedAt(t time.Time) { a.startedAt = t }

// SetResult restores a stored outcome without touching timestamps.
func (a *Attempt) SetResult(outcome Outcome, message string, finishedAt *time.Time) {
	a.outcome = outcome
	a.errMessage = message
	a.finishedAt = finishedAt
}

// Finish marks the attempt as ended with outcome. err, when non-nil, is kept as the error message.
func (a *Attempt) Finish(outcome Outcome, err error) {
	now := time.Now().UTC()
	a.outcome = outcome
	a.finishedAt = &now
	if err != nil {
		a.errMessage = err.Error()
	}
}

// Duration returns how long the attempt ran, or zero while it is pending.
func (a *Attempt) Duration() time.Duration {
	if a.finishedAt == nil {
		return 0
	}
	return a.finishedAt.Sub(a.startedAt)
}

// Validate checks the mode, outcome, and port range.
func (a *Attempt) Validate() error {
	if !slices.Contains(modes, a.mode) {
		return fmt.Errorf("%w: unknown mode %q", shared.ErrInvalidInput, a.mode)
	}
	if !slices.Contains(outcomes, a.outcome) {
		return fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidInput, a.outcome)
	}
	if a.port < 0 || a.port > 65535 {
		return fmt.Errorf("%w: port %d out of range", shared.ErrInvalidInput, a.port)
	}
	if a.startedAt.IsZero() {
		return fmt.Errorf("%w: start time is required", shared.ErrInvalidInput)
	}
	return nil
}

// ParseOutcome converts stored text to an [Outcome].
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if !slices.Contains(outcomes, o) {
		return "", fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidArgument, s)
	}
	return o, nil
}
