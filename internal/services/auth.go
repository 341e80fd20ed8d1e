package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// AuthClient maps the /auth endpoints onto typed calls.
type AuthClient struct {
	api Requester
}

func NewAuthClient(api Requester) *AuthClient {
	return &AuthClient{api: api}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges an email and password for a [models.Credential].
func (c *AuthClient) Login(ctx context.Context, email, password string) (models.Credential, error) {
	resp, err := c.api.Request(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, nil)
	if err != nil {
		return "", err
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}

	cred := models.Credential(body.Token)
	if cred.IsZero() {
		return "", fmt.Errorf("%w: login response has no token", shared.ErrAuthFailed)
	}
	return cred, nil
}

// Register creates an account. It does not log in.
func (c *AuthClient) Register(ctx context.Context, name, email, password string) error {
	_, err := c.api.Request(ctx, http.MethodPost, "/auth/register", registerRequest{Name: name, Email: email, Password: password}, nil)
	return err
}
