package users

import (
	"context"

	"github.com/odyssey-erp/odyssey-identity/internal/identity"
)

// Repository is the identity persistence port used by Service.
type Repository interface {
	Exists(ctx context.Context, loginKey string) (bool, error)
	Create(ctx context.Context, rec identity.UserRecord) error
	FindByLoginKey(ctx context.Context, loginKey string) (identity.UserRecord, error)
}

var _ Repository = (*identity.Store)(nil)
