package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fitstack/fitstack-bookings/internal/auth"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/ports"
)

// challengeTTL is how long an operator sign-in challenge stays redeemable.
const challengeTTL = 5 * time.Minute

// LoginResult is the outcome of a sign-in step. Either the session fields are
// set, or ChallengeToken is set and the caller must complete the second step.
type LoginResult struct {
	Token          string           `json:"token,omitempty"`
	ExpiresAt      time.Time        `json:"expires_at,omitempty"`
	Principal      domain.Principal `json:"principal,omitempty"`
	Role           domain.Role      `json:"role,omitempty"`
	ChallengeToken string           `json:"challenge_token,omitempty"`
}

// AuthService signs accounts in under one of the two roles. Operator sign-in
// is two-step: password first, then a short-lived challenge code held in
// Redis and cleared on completion or expiry.
type AuthService struct {
	users  ports.UserRepository
	rdb    *redis.Client
	issuer *auth.Issuer
	logger *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(users ports.UserRepository, rdb *redis.Client, issuer *auth.Issuer, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, rdb: rdb, issuer: issuer, logger: logger}
}

// Login verifies credentials for the requested role. A role mismatch is
// reported as invalid credentials so the response does not leak which roles
// an account holds.
func (s *AuthService) Login(ctx context.Context, email, password string, role domain.Role) (*LoginResult, error) {
	if !domain.ValidRole(role) {
		return nil, domain.NewServiceError(domain.ErrInvalidCredentials,
			"unknown role", "INVALID_CREDENTIALS")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrInvalidCredentials,
			"email or password is incorrect", "INVALID_CREDENTIALS")
	}
	if user.Role != role {
		return nil, domain.NewServiceError(domain.ErrInvalidCredentials,
			"email or password is incorrect", "INVALID_CREDENTIALS")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.NewServiceError(domain.ErrInvalidCredentials,
			"email or password is incorrect", "INVALID_CREDENTIALS")
	}

	if role == domain.RoleOperator {
		return s.startChallenge(ctx, user)
	}
	return s.issueSession(user, role)
}

// CompleteChallenge redeems an operator challenge. The Redis entry is deleted
// whether or not the code matches, so a code can be tried once.
func (s *AuthService) CompleteChallenge(ctx context.Context, challengeToken, code string) (*LoginResult, error) {
	key := challengeKey(challengeToken)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.NewServiceError(domain.ErrChallengeInvalid,
				"challenge expired or unknown", "CHALLENGE_INVALID")
		}
		return nil, err
	}
	if delErr := s.rdb.Del(ctx, key).Err(); delErr != nil {
		s.logger.Warn("challenge cleanup failed", zap.Error(delErr))
	}

	// Value layout: "<code>|<email>".
	storedCode, email, ok := strings.Cut(stored, "|")
	if !ok || storedCode != code {
		return nil, domain.NewServiceError(domain.ErrChallengeInvalid,
			"challenge code is incorrect", "CHALLENGE_INVALID")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.NewServiceError(domain.ErrChallengeInvalid,
			"account no longer exists", "CHALLENGE_INVALID")
	}
	return s.issueSession(user, domain.RoleOperator)
}

func (s *AuthService) startChallenge(ctx context.Context, user *domain.User) (*LoginResult, error) {
	token, err := auth.NewChallengeToken()
	if err != nil {
		return nil, err
	}
	code, err := challengeCode()
	if err != nil {
		return nil, err
	}
	value := fmt.Sprintf("%s|%s", code, user.Email)
	if err := s.rdb.Set(ctx, challengeKey(token), value, challengeTTL).Err(); err != nil {
		return nil, err
	}

	// Delivery of the code (SMS/email) is an external collaborator; the log
	// line stands in for it outside production.
	s.logger.Info("operator challenge issued",
		zap.String("email", user.Email), zap.String("code", code))

	return &LoginResult{ChallengeToken: token}, nil
}

func (s *AuthService) issueSession(user *domain.User, role domain.Role) (*LoginResult, error) {
	principal := user.Principal()
	token, exp, err := s.issuer.Issue(principal, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session issued",
		zap.String("user_id", user.ID), zap.String("role", string(role)))
	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		Principal: principal,
		Role:      role,
	}, nil
}

func challengeKey(token string) string {
	return "auth:challenge:" + token
}

func challengeCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
