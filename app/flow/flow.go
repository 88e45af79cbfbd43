package flow

import (
	"errors"
	"fmt"
	"strings"
)

// State is one step of the client-side payment journey. The machine is meant
// to sit behind a form or CLI driver on a single goroutine; the server-side
// session advances independently through webhooks and reconciliation.
type State int32

const (
	StateIdle State = iota
	StateFormValid
	StateSubmitting
	StateRedirectedOut
	StateVerifying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFormValid:
		return "form_valid"
	case StateSubmitting:
		return "submitting"
	case StateRedirectedOut:
		return "redirected_out"
	case StateVerifying:
		return "verifying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var ErrInvalidTransition = errors.New("invalid payment flow transition")

// Machine drives one checkout attempt from form entry to its outcome.
type Machine struct {
	state       State
	email       string
	name        string
	redirectURL string
	reference   string
	failReason  string
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) RedirectURL() string { return m.redirectURL }

func (m *Machine) Reference() string { return m.reference }

func (m *Machine) FailReason() string { return m.failReason }

// ValidateForm guards entry into FormValid: the email needs an "@" and the
// name must not be blank. Re-validating from FormValid is allowed so edits
// to the form keep the machine consistent.
func (m *Machine) ValidateForm(email, name string) error {
	if m.state != StateIdle && m.state != StateFormValid {
		return fmt.Errorf("%w: cannot validate form in state %s", ErrInvalidTransition, m.state)
	}

	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if !strings.Contains(email, "@") {
		m.state = StateIdle
		return errors.New("email must contain @")
	}
	if name == "" {
		m.state = StateIdle
		return errors.New("name must not be empty")
	}

	m.email = email
	m.name = name
	m.state = StateFormValid
	return nil
}

func (m *Machine) Submit() error {
	if m.state != StateFormValid {
		return fmt.Errorf("%w: submit requires a valid form, state is %s", ErrInvalidTransition, m.state)
	}
	m.state = StateSubmitting
	return nil
}

// RedirectOut records the hosted checkout URL the customer is sent to. The
// whole page navigates away; if the customer abandons the hosted page the
// machine simply never advances and the server session times out on its own.
func (m *Machine) RedirectOut(url string) error {
	if m.state != StateSubmitting {
		return fmt.Errorf("%w: redirect requires an in-flight submission, state is %s", ErrInvalidTransition, m.state)
	}
	if strings.TrimSpace(url) == "" {
		m.failReason = "provider returned no approval url"
		m.state = StateFailed
		return errors.New(m.failReason)
	}
	m.redirectURL = url
	m.state = StateRedirectedOut
	return nil
}

// SubmitFailed short-circuits Submitting to Failed when the create call
// itself errors before any redirect happens.
func (m *Machine) SubmitFailed(reason string) error {
	if m.state != StateSubmitting {
		return fmt.Errorf("%w: no submission in flight, state is %s", ErrInvalidTransition, m.state)
	}
	m.failReason = reason
	m.state = StateFailed
	return nil
}

// BeginVerify marks the return from the hosted page with the provider
// reference. Verification is one-shot: there is no retry loop, the single
// outcome decides the terminal state.
func (m *Machine) BeginVerify(reference string) error {
	if m.state != StateRedirectedOut {
		return fmt.Errorf("%w: verify requires a completed redirect, state is %s", ErrInvalidTransition, m.state)
	}
	if strings.TrimSpace(reference) == "" {
		return errors.New("reference must not be empty")
	}
	m.reference = strings.TrimSpace(reference)
	m.state = StateVerifying
	return nil
}

func (m *Machine) CompleteVerify(succeeded bool, reason string) error {
	if m.state != StateVerifying {
		return fmt.Errorf("%w: no verification in flight, state is %s", ErrInvalidTransition, m.state)
	}
	if succeeded {
		m.state = StateSucceeded
	} else {
		m.failReason = reason
		m.state = StateFailed
	}
	return nil
}

// Reset starts a fresh attempt after a failure.
func (m *Machine) Reset() error {
	if m.state != StateFailed && m.state != StateSucceeded {
		return fmt.Errorf("%w: reset requires a finished flow, state is %s", ErrInvalidTransition, m.state)
	}
	*m = Machine{state: StateIdle}
	return nil
}
