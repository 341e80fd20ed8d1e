package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges email and password for a credential and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	password, err := passwordFrom(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	r.logger.Debug("logging in", "email", cmd.String("email"))
	return r.auth.Login(ctx, models.LoginInput{Email: cmd.String("email"), Password: password})
}

// AuthRegister creates an account. It does not log in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	password, err := passwordFrom(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	return r.auth.Register(ctx, models.RegisterInput{
		Name:     cmd.String("name"),
		Email:    cmd.String("email"),
		Password: password,
	})
}

// AuthLogout clears the stored credential. Logging out twice only warns.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	if err := r.auth.Logout(); err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	return nil
}

type statusEvent struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

type authStatus struct {
	State      string        `json:"state"`
	Store      string        `json:"store"`
	Credential string        `json:"credential,omitempty"`
	BaseURL    string        `json:"base_url"`
	Events     []statusEvent `json:"events,omitempty"`
}

// AuthStatus shows the session state, where the credential lives and, optionally, recent transitions.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(sessionOpts{}); err != nil {
		return err
	}

	status := authStatus{
		State:   r.session.State().String(),
		Store:   r.config.Session.Store,
		BaseURL: r.config.API.BaseURL,
	}
	if cred, err := r.store.Get(); err == nil {
		status.Credential = cred.Masked()
	}

	if n := int(cmd.Int("events")); n > 0 {
		if r.events == nil {
			r.logger.Warn("session events are only recorded with the sqlite store", "store", status.Store)
		} else {
			events, err := r.events.List(n)
			if err != nil {
				return fmt.Errorf("failed to list session events: %w", err)
			}
			for _, e := range events {
				status.Events = append(status.Events, statusEvent{From: e.From, To: e.To, Reason: e.Reason, CreatedAt: e.CreatedAt()})
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Session")
	r.writePlain("State:      %s\n", status.State)
	r.writePlain("Store:      %s\n", status.Store)
	r.writePlain("API:        %s\n", status.BaseURL)
	if status.Credential != "" {
		r.writePlain("Credential: %s\n", status.Credential)
	}

	if len(status.Events) > 0 {
		r.writePlainln("Recent transitions:")
		for _, e := range status.Events {
			r.writePlain("  %s  %s -> %s (%s)\n", e.CreatedAt.Local().Format(time.DateTime), e.From, e.To, e.Reason)
		}
	}
	return nil
}

func passwordFrom(cmd *cli.Command) (string, error) {
	password := cmd.String("password")
	if password == "" {
		return "", fmt.Errorf("%w: --password or %s is required", shared.ErrMissingArgument, EnvPassword)
	}
	return password, nil
}
