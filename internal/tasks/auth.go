package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/services"
	"github.com/desertthunder/watchlist/internal/session"
	"github.com/desertthunder/watchlist/internal/shared"
)

const (
	MessageLoginFailed      = "Failed to log in"
	MessageRegisterFailed   = "Failed to register"
	MessageLoggedIn         = "Logged in successfully!"
	MessageRegistered       = "Account created! You can now log in."
	MessageAlreadyLoggedOut = "You are not logged in."
)

// AuthAPI is the remote side of the auth flows. [services.AuthClient] implements it.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (models.Credential, error)
	Register(ctx context.Context, name, email, password string) error
}

// SessionController is the part of the session the auth flows drive. [session.Machine] implements it.
type SessionController interface {
	Login(cred models.Credential) error
	Logout() error
}

// AuthFlow runs the one-shot login, register and logout exchanges.
//
// A failed login or registration never touches the session or the credential store.
type AuthFlow struct {
	api       AuthAPI
	session   SessionController
	notifier  session.Notifier
	navigator session.Navigator
	logger    *log.Logger
}

// AuthFlowOpts configures an [AuthFlow].
type AuthFlowOpts struct {
	API       AuthAPI
	Session   SessionController
	Notifier  session.Notifier
	Navigator session.Navigator
	Logger    *log.Logger
}

func NewAuthFlow(opts AuthFlowOpts) *AuthFlow {
	if opts.Notifier == nil {
		opts.Notifier = session.NotifierFunc(func(session.Notification) {})
	}
	if opts.Navigator == nil {
		opts.Navigator = session.NavigatorFunc(func(session.Route) {})
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &AuthFlow{
		api:       opts.API,
		session:   opts.Session,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		logger:    opts.Logger,
	}
}

// Login exchanges credentials for a token, stores it and navigates to the protected root.
func (f *AuthFlow) Login(ctx context.Context, in models.LoginInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		f.notifyError(failureMessage(err, MessageLoginFailed))
		return err
	}

	cred, err := f.api.Login(ctx, in.Email, in.Password)
	if err != nil {
		f.logger.Warn("login failed", "email", in.Email, "error", err)
		f.notifyError(authFailureMessage(err, MessageLoginFailed))
		return rejected(err)
	}

	if err := f.session.Login(cred); err != nil {
		f.logger.Error("failed to store credential", "error", err)
		f.notifyError(MessageLoginFailed)
		return err
	}

	f.logger.Info("logged in", "email", in.Email)
	f.notifier.Notify(session.Notification{Level: session.LevelSuccess, Message: MessageLoggedIn})
	f.navigator.Navigate(session.RouteHome)
	return nil
}

// Register creates an account and navigates to the login screen. It does not log in.
func (f *AuthFlow) Register(ctx context.Context, in models.RegisterInput) error {
	in.Name, in.Email = strings.TrimSpace(in.Name), strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		f.notifyError(failureMessage(err, MessageRegisterFailed))
		return err
	}

	if err := f.api.Register(ctx, in.Name, in.Email, in.Password); err != nil {
		f.logger.Warn("registration failed", "email", in.Email, "error", err)
		f.notifyError(authFailureMessage(err, MessageRegisterFailed))
		return rejected(err)
	}

	f.logger.Info("registered", "email", in.Email)
	f.notifier.Notify(session.Notification{Level: session.LevelSuccess, Message: MessageRegistered})
	f.navigator.Navigate(session.RouteLogin)
	return nil
}

// Logout ends the session. The session itself notifies and navigates.
func (f *AuthFlow) Logout() error {
	err := f.session.Logout()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		f.notifier.Notify(session.Notification{Level: session.LevelWarn, Message: MessageAlreadyLoggedOut})
	}
	return err
}

func (f *AuthFlow) notifyError(msg string) {
	f.notifier.Notify(session.Notification{Level: session.LevelError, Message: msg})
}

// authFailureMessage prefers the server's text for any 4xx, including a 401 bad-credentials reply.
func authFailureMessage(err error, fallback string) string {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// rejected marks business rejections (bad credentials, duplicate email) with [shared.ErrAuthRejected].
func rejected(err error) error {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && apiErr.ClientError() {
		return fmt.Errorf("%w: %w", shared.ErrAuthRejected, err)
	}
	return err
}

var (
	_ AuthAPI           = (*services.AuthClient)(nil)
	_ SessionController = (*session.Machine)(nil)
)
