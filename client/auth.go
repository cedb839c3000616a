package client

import (
	"context"
	"net/http"
	"time"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// LoginOutcome is the result of a sign-in step. Either the session is
// established, or ChallengeRequired is set and CompleteChallenge finishes it.
type LoginOutcome struct {
	ChallengeRequired bool
	Principal         domain.Principal
	Role              domain.Role
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Token          string           `json:"token"`
		ExpiresAt      time.Time        `json:"expires_at"`
		Principal      domain.Principal `json:"principal"`
		Role           domain.Role      `json:"role"`
		ChallengeToken string           `json:"challenge_token"`
	} `json:"result"`
}

// Login signs in under a role. On success the role's session is written,
// overwriting any stale pair. Operator sign-in may instead yield a pending
// challenge whose intermediate credential is held until CompleteChallenge or
// AbandonChallenge.
func (c *Client) Login(ctx context.Context, role domain.Role, email, password string) (*LoginOutcome, error) {
	var resp loginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", anonymous,
		loginRequest{Email: email, Password: password, Role: string(role)}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Result.ChallengeToken != "" {
		if err := c.sessions.SetChallenge(ctx, resp.Result.ChallengeToken); err != nil {
			return nil, err
		}
		return &LoginOutcome{ChallengeRequired: true}, nil
	}

	if err := c.sessions.Set(ctx, role, resp.Result.Token, resp.Result.Principal); err != nil {
		return nil, err
	}
	return &LoginOutcome{Principal: resp.Result.Principal, Role: role}, nil
}

type challengeRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

// CompleteChallenge finishes the two-step operator sign-in. The intermediate
// credential is cleared on completion, whatever the outcome of the code
// check; a failed code means signing in again from the start.
func (c *Client) CompleteChallenge(ctx context.Context, code string) (*LoginOutcome, error) {
	challenge, err := c.sessions.Challenge(ctx)
	if err != nil {
		return nil, err
	}
	if challenge == "" {
		return nil, domain.NewServiceError(domain.ErrChallengeInvalid,
			"no sign-in challenge is pending", "CHALLENGE_INVALID")
	}

	var resp loginResponse
	err = c.do(ctx, http.MethodPost, "/api/v1/auth/challenge", anonymous,
		challengeRequest{ChallengeToken: challenge, Code: code}, &resp)
	_ = c.sessions.ClearChallenge(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Set(ctx, domain.RoleOperator, resp.Result.Token, resp.Result.Principal); err != nil {
		return nil, err
	}
	return &LoginOutcome{Principal: resp.Result.Principal, Role: domain.RoleOperator}, nil
}

// AbandonChallenge drops a pending sign-in challenge.
func (c *Client) AbandonChallenge(ctx context.Context) error {
	return c.sessions.ClearChallenge(ctx)
}

// Logout ends one role's session. The other role's session is untouched.
// The local pair is cleared even if the backend call fails; the token simply
// expires server-side.
func (c *Client) Logout(ctx context.Context, role domain.Role) error {
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", role, nil, nil)
	if clearErr := c.sessions.Clear(ctx, role); clearErr != nil {
		return clearErr
	}
	return err
}
