package model

import "time"

// User roles carried in the JWT "role" claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account as stored in the `users` table.
//
// Fields:
//
//	ID          : primary key identifier of the user.
//	Name        : display name.
//	Email       : unique email address; bookings are owned by email.
//	PasswordHash: bcrypt hashed password.
//	Role        : user or admin.
//	IsActive    : whether the account may log in.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Requester identifies the caller of a booking operation.
type Requester struct {
	UserID uint64
	Email  string
	Role   string
}

// IsAdmin reports whether the requester holds the admin role.
func (r Requester) IsAdmin() bool { return r.Role == RoleAdmin }
