package apiclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jobmatch/jobmatch-portal/internal/model"
)

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (model.TokenResponse, error) {
	var tok model.TokenResponse
	err := c.doPublic(ctx, http.MethodPost, "/auth/login", model.LoginRequest{Email: email, Password: password}, &tok)
	if err != nil {
		return model.TokenResponse{}, err
	}
	if tok.AccessToken == "" {
		return model.TokenResponse{}, ErrNoToken
	}
	return tok, nil
}

// Me returns the user the attached token belongs to.
func (c *Client) Me(ctx context.Context) (model.UserSummary, error) {
	var u model.UserSummary
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return model.UserSummary{}, err
	}
	return u, nil
}

// Register creates an account. The acknowledgement is returned as sent.
func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (json.RawMessage, error) {
	var ack json.RawMessage
	if err := c.doPublic(ctx, http.MethodPost, "/auth/register", req, &ack); err != nil {
		return nil, err
	}
	return ack, nil
}
