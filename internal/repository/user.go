package repository

import (
	"context"

	"enrollapi/internal/model"
)

// UserUpdate is the narrow allow-list of mutable user fields. Nil pointers
// leave the column untouched.
type UserUpdate struct {
	DisplayName *string
	Role        *model.Role
	Active      *bool
}

// UserRepository defines data access for portal accounts.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, pq PageQuery) (*PageResult[model.User], error)
	Update(ctx context.Context, id string, upd UserUpdate) (*model.User, error)
}
