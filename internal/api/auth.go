package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// LoginPath is the admin sign-in endpoint.
const LoginPath = "auth/admin/login"

// LoginResult is the payload of a successful sign-in.
type LoginResult struct {
	Token string        `json:"token"`
	Admin entity.Record `json:"admin"`
}

// Login exchanges admin credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}
	env, err := c.Request(ctx, http.MethodPost, LoginPath, body)
	if err != nil {
		return nil, err
	}
	var res LoginResult
	if err := env.Into(&res); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if res.Token == "" {
		return nil, &Error{Method: http.MethodPost, Path: LoginPath, StatusCode: http.StatusOK, Message: env.Message, Err: ErrRejected}
	}
	return &res, nil
}
