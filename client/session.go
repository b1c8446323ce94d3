package client

import (
	"context"
	"net/http"
	"time"

	"github.com/statbureau/datahub/core/user"
)

// LoggedOut is the session returned by Bootstrap when no user could be restored.
var LoggedOut = Session{}

func (s Session) Authenticated() bool { return s.User.ID != "" }

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var sess Session
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &sess)
	return sess, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

func (c *Client) Session(ctx context.Context) (Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, nil, &sess)
	return sess, err
}

// Bootstrap restores the session held by the cookie jar.
// It fails open: a timeout or any error yields LoggedOut.
func (c *Client) Bootstrap(ctx context.Context) Session {
	ctx, cancel := context.WithTimeout(ctx, c.bootstrapTimeout)
	defer cancel()

	sess, err := c.Session(ctx)
	if err != nil {
		return LoggedOut
	}
	return sess
}

func (c *Client) TempSignup(ctx context.Context, ts user.TempSignup) (Session, error) {
	var sess Session
	err := c.do(ctx, http.MethodPost, "/api/auth/temp-signup", nil, ts, &sess)
	return sess, err
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/password-reset", nil, map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, data user.ResetUserPassword) error {
	return c.do(ctx, http.MethodPost, "/api/auth/password-reset-confirm", nil, data, nil)
}

// withBootstrapTimeout is used by tests to avoid waiting the full delay.
func withBootstrapTimeout(d time.Duration) Option {
	return func(c *Client) { c.bootstrapTimeout = d }
}
