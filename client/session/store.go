// Package session holds the two independent authenticated sessions the
// client maintains: end-user and operator. Both live in one shared key-value
// store under disjoint role-prefixed keys, and every outbound request
// re-reads its credential from the store, so another process's sign-in is
// observed on the next call.
package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fitstack/fitstack-bookings/internal/core/domain"
)

// ErrKeyNotFound is returned by a KV when a key is absent.
var ErrKeyNotFound = errors.New("key not found")

// KV is the minimal key-value contract the store needs. Implementations are
// shared across processes with last-writer-wins semantics; the store never
// caches values in memory.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
}

const (
	challengeKey = "session:challenge"
)

func tokenKey(role domain.Role) string {
	return "session:" + string(role) + ":token"
}

func principalKey(role domain.Role) string {
	return "session:" + string(role) + ":principal"
}

// Store resolves which credential to attach to an outbound request.
type Store struct {
	kv KV

	// allowFallback reproduces the source behaviour of attaching the other
	// role's credential when the requested role has none. Off by default;
	// strict isolation unless a caller opts in.
	allowFallback bool
}

// Option configures a Store.
type Option func(*Store)

// WithRoleFallback enables attaching the other role's credential when the
// requested role is unauthenticated. Availability-over-isolation tradeoff;
// leave it off unless the deployment explicitly wants it.
func WithRoleFallback() Option {
	return func(s *Store) { s.allowFallback = true }
}

// NewStore creates a session store over the given KV.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init validates each role's persisted pair independently, purging anything
// half-written so the role starts unauthenticated. Credential applies the
// same rule lazily on every read, so an embedder that never calls Init still
// cannot attach an orphaned token; Init exists to clean the store up front
// rather than on first use.
func (s *Store) Init(ctx context.Context) error {
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleOperator} {
		token, err := s.validPair(ctx, role)
		if err != nil {
			return err
		}
		if token == "" {
			if err := s.kv.Del(ctx, tokenKey(role), principalKey(role)); err != nil {
				return err
			}
		}
	}
	return nil
}

// validPair returns the role's credential when the persisted pair is whole: a
// non-empty token and a well-formed principal. Anything less counts as
// unauthenticated.
func (s *Store) validPair(ctx context.Context, role domain.Role) (string, error) {
	token, err := s.kv.Get(ctx, tokenKey(role))
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", nil
	}

	raw, err := s.kv.Get(ctx, principalKey(role))
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var p domain.Principal
	if json.Unmarshal([]byte(raw), &p) != nil || p.Validate() != nil {
		return "", nil
	}
	return token, nil
}

// Set stores a role's credential and principal, overwriting any stale state.
func (s *Store) Set(ctx context.Context, role domain.Role, token string, principal domain.Principal) error {
	if !domain.ValidRole(role) {
		return domain.NewServiceError(domain.ErrInvalidPrincipal, "unknown role", "INVALID_ROLE")
	}
	if err := principal.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, tokenKey(role), token); err != nil {
		return err
	}
	return s.kv.Set(ctx, principalKey(role), string(raw))
}

// Credential returns the role's bearer credential, empty when the role is
// unauthenticated. A half-written pair - token without a well-formed
// principal - counts as unauthenticated here too, not just at Init time.
func (s *Store) Credential(ctx context.Context, role domain.Role) (string, error) {
	return s.validPair(ctx, role)
}

// Principal returns the role's stored principal.
func (s *Store) Principal(ctx context.Context, role domain.Role) (domain.Principal, bool, error) {
	raw, err := s.kv.Get(ctx, principalKey(role))
	if errors.Is(err, ErrKeyNotFound) {
		return domain.Principal{}, false, nil
	}
	if err != nil {
		return domain.Principal{}, false, err
	}
	var p domain.Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Principal{}, false, nil
	}
	return p, true, nil
}

// Clear removes exactly one role's pair. The other role's keys are never
// touched, whatever state they are in.
func (s *Store) Clear(ctx context.Context, role domain.Role) error {
	return s.kv.Del(ctx, tokenKey(role), principalKey(role))
}

// Resolve picks the credential to attach for a request made under the given
// role. With fallback enabled and the role unauthenticated, the other role's
// credential is attached instead. A request can resolve to no credential at
// all; it then proceeds unauthenticated and the backend is the sole authority
// that rejects it.
func (s *Store) Resolve(ctx context.Context, role domain.Role) (domain.Role, string, error) {
	token, err := s.Credential(ctx, role)
	if err != nil {
		return role, "", err
	}
	if token != "" {
		return role, token, nil
	}
	if s.allowFallback {
		other := role.Other()
		otherToken, err := s.Credential(ctx, other)
		if err != nil {
			return role, "", err
		}
		if otherToken != "" {
			return other, otherToken, nil
		}
	}
	return role, "", nil
}

// SetChallenge stores the short-lived intermediate credential used during
// the two-step sign-in.
func (s *Store) SetChallenge(ctx context.Context, token string) error {
	return s.kv.Set(ctx, challengeKey, token)
}

// Challenge returns the pending challenge credential, empty when none.
func (s *Store) Challenge(ctx context.Context) (string, error) {
	token, err := s.kv.Get(ctx, challengeKey)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// ClearChallenge drops the intermediate credential; called on completion and
// on abandonment.
func (s *Store) ClearChallenge(ctx context.Context) error {
	return s.kv.Del(ctx, challengeKey)
}
