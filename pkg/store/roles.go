package store

import (
	"context"

	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// RolesAPI is the role management surface of the gateway.
type RolesAPI interface {
	ListRoles(ctx context.Context) ([]sdk.Role, error)
	GetRole(ctx context.Context, id string) (*sdk.Role, error)
	CreateRole(ctx context.Context, input sdk.CreateRoleInput) (*sdk.Role, error)
	UpdateRole(ctx context.Context, id string, input sdk.UpdateRoleInput) (*sdk.Role, error)
	DeleteRole(ctx context.Context, id string) error
}

type roleCollection struct{ api RolesAPI }

func (c roleCollection) List(ctx context.Context) ([]sdk.Role, error) {
	return c.api.ListRoles(ctx)
}

func (c roleCollection) Get(ctx context.Context, id string) (*sdk.Role, error) {
	return c.api.GetRole(ctx, id)
}

func (c roleCollection) Create(ctx context.Context, input sdk.CreateRoleInput) (*sdk.Role, error) {
	return c.api.CreateRole(ctx, input)
}

func (c roleCollection) Update(ctx context.Context, id string, input sdk.UpdateRoleInput) (*sdk.Role, error) {
	return c.api.UpdateRole(ctx, id, input)
}

func (c roleCollection) Delete(ctx context.Context, id string) error {
	return c.api.DeleteRole(ctx, id)
}

// Roles is the store of roles. Embedded permissions and user counts are as
// fresh as the last fetch.
type Roles struct {
	*Resource[sdk.Role, sdk.CreateRoleInput, sdk.UpdateRoleInput]
}

// NewRoles creates the roles store.
func NewRoles(api RolesAPI, opts ...Option) *Roles {
	return &Roles{
		Resource: NewResource[sdk.Role, sdk.CreateRoleInput, sdk.UpdateRoleInput](
			"role", roleCollection{api: api}, func(r sdk.Role) string { return r.ID }, opts...),
	}
}
