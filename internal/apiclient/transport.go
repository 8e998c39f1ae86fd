package apiclient

import (
	"context"
	"net/http"
)

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Read(ctx context.Context) (string, bool)
}

// UnauthorizedFunc is told which token the API rejected.
type UnauthorizedFunc func(ctx context.Context, rejectedToken string)

// bearerTransport attaches the current token to every request and reports
// 401 responses to requests that carried one.
type bearerTransport struct {
	base           http.RoundTripper
	tokens         TokenSource
	onUnauthorized UnauthorizedFunc
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, ok := t.tokens.Read(req.Context())
	if ok {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && ok && t.onUnauthorized != nil {
		t.onUnauthorized(req.Context(), token)
	}
	return resp, nil
}
