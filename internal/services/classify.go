package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/watchlist/internal/shared"
)

// Outcome is the classification of an API response.
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeSessionExpired  Outcome = "session_expired"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeRejected        Outcome = "rejected"
)

// Invalidates reports whether the outcome forces the session to end.
func (o Outcome) Invalidates() bool {
	return o == OutcomeSessionExpired || o == OutcomeUnauthenticated
}

// Messages the API sends with 401 responses when it predates structured codes.
const (
	MessageTokenInvalid = "Token inválido ou expirado."
	MessageTokenMissing = "Token de autenticação não fornecido ou mal formatado."
)

// Codes the API sends alongside 401 responses.
const (
	CodeTokenInvalid = "token_invalid"
	CodeTokenExpired = "token_expired"
	CodeTokenMissing = "token_missing"
)

// Classify maps a response to an [Outcome]. It has no side effects.
//
// Only 401 responses can invalidate a session. A structured code wins over the message when present,
// so a 401 carrying an unknown code is a plain rejection (e.g. bad login credentials).
func Classify(status int, code, message string) Outcome {
	if status >= 200 && status < 300 {
		return OutcomeOK
	}
	if status != http.StatusUnauthorized {
		return OutcomeRejected
	}

	if code = strings.TrimSpace(code); code != "" {
		switch strings.ToLower(code) {
		case CodeTokenInvalid, CodeTokenExpired:
			return OutcomeSessionExpired
		case CodeTokenMissing:
			return OutcomeUnauthenticated
		default:
			return OutcomeRejected
		}
	}

	message = strings.TrimSpace(message)
	switch {
	case strings.EqualFold(message, MessageTokenInvalid):
		return OutcomeSessionExpired
	case strings.EqualFold(message, MessageTokenMissing):
		return OutcomeUnauthenticated
	default:
		return OutcomeRejected
	}
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string // the body's "message" field
	Detail     string // the body's "error" field
	Outcome    Outcome
}

func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	_ = json.Unmarshal(body, &payload)

	return &APIError{
		StatusCode: status,
		Code:       payload.Code,
		Message:    payload.Message,
		Detail:     payload.Error,
		Outcome:    Classify(status, payload.Code, payload.Message),
	}
}

// UserMessage is the server text to show a user: "error" first, then "message". It may be empty.
func (e *APIError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

func (e *APIError) Error() string {
	msg := e.UserMessage()
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%v: %d %s", e.Unwrap(), e.StatusCode, msg)
}

// Unwrap maps the outcome onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch e.Outcome {
	case OutcomeSessionExpired:
		return shared.ErrSessionExpired
	case OutcomeUnauthenticated:
		return shared.ErrUnauthenticated
	default:
		return shared.ErrAPIRequest
	}
}

// ClientError reports a 4xx response that is not a session signal.
func (e *APIError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && !e.Outcome.Invalidates()
}
