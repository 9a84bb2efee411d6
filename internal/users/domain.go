package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-identity/internal/identity"
)

// PublicUser is the redacted view of a user returned to callers. It has no
// password or hash field.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	IsActive  bool      `json:"isActive"`
}

// Registration is the outcome of a successful Register call.
type Registration struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// VerifyResult is the outcome of Verify. User is set only when Valid.
type VerifyResult struct {
	Valid bool
	User  *PublicUser
}

func redact(rec identity.UserRecord) PublicUser {
	return PublicUser{
		ID:        rec.ID,
		Email:     rec.LoginKey,
		CreatedAt: rec.CreatedAt,
		IsActive:  rec.IsActive,
	}
}
