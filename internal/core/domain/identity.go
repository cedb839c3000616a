package domain

// Role is one of the two independent authentication contexts. The sessions
// behind them are never merged: an operator credential must never satisfy a
// check that requires a user credential, and vice versa.
type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
)

// Other returns the opposite role.
func (r Role) Other() Role {
	if r == RoleOperator {
		return RoleUser
	}
	return RoleOperator
}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleOperator
}

// Principal is the identity attached to a session.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Validate checks the minimum identity fields. A persisted principal missing
// either field is treated as corrupt and the whole session is purged.
func (p Principal) Validate() error {
	if p.ID == "" || p.Name == "" {
		return NewServiceError(ErrInvalidPrincipal,
			"principal requires id and name", "INVALID_PRINCIPAL")
	}
	return nil
}

// User is a registered account, end-user or operator.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Principal derives the session principal for a user.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email}
}
