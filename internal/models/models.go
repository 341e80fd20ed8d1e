package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for locally persisted records.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Credential is the opaque bearer token issued by the API on login.
type Credential string

// IsZero reports whether the credential is empty.
func (c Credential) IsZero() bool { return strings.TrimSpace(string(c)) == "" }

// Masked returns the credential with all but the last four characters hidden.
func (c Credential) Masked() string {
	s := string(c)
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", 8) + s[len(s)-4:]
}

// CredentialStore is the persisted slot holding at most one [Credential].
//
// Get returns [shared.ErrNoCredential] when the slot is empty.
type CredentialStore interface {
	Get() (Credential, error)
	Set(Credential) error
	Clear() error
}

// SessionEvent records one session state transition.
type SessionEvent struct {
	id        string
	From      string
	To        string
	Reason    string
	createdAt time.Time
}

// NewSessionEvent creates a [SessionEvent] stamped with the current time.
func NewSessionEvent(from, to, reason string) *SessionEvent {
	return &SessionEvent{From: from, To: to, Reason: reason, createdAt: time.Now().UTC()}
}

func (e *SessionEvent) ID() string               { return e.id }
func (e *SessionEvent) SetID(id string)          { e.id = id }
func (e *SessionEvent) CreatedAt() time.Time     { return e.createdAt }
func (e *SessionEvent) SetCreatedAt(t time.Time) { e.createdAt = t }

// Validate requires both states and a reason.
func (e *SessionEvent) Validate() error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("session event requires from and to states")
	}
	if e.Reason == "" {
		return fmt.Errorf("session event requires a reason")
	}
	return nil
}

var _ Model = (*SessionEvent)(nil)
