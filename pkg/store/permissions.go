package store

import (
	"context"
	"errors"

	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// errUnsupported is returned by the permission operations the gateway lacks.
var errUnsupported = errors.New("operation not supported for permissions")

// PermissionsAPI is the permission surface of the gateway: list and create.
type PermissionsAPI interface {
	ListPermissions(ctx context.Context) ([]sdk.Permission, error)
	CreatePermission(ctx context.Context, input sdk.CreatePermissionInput) (*sdk.Permission, error)
}

type permissionCollection struct{ api PermissionsAPI }

func (c permissionCollection) List(ctx context.Context) ([]sdk.Permission, error) {
	return c.api.ListPermissions(ctx)
}

func (c permissionCollection) Create(ctx context.Context, input sdk.CreatePermissionInput) (*sdk.Permission, error) {
	return c.api.CreatePermission(ctx, input)
}

func (permissionCollection) Get(context.Context, string) (*sdk.Permission, error) {
	return nil, errUnsupported
}

func (permissionCollection) Update(context.Context, string, struct{}) (*sdk.Permission, error) {
	return nil, errUnsupported
}

func (permissionCollection) Delete(context.Context, string) error {
	return errUnsupported
}

// Permissions is the store of grantable permissions.
type Permissions struct {
	res *Resource[sdk.Permission, sdk.CreatePermissionInput, struct{}]
}

// NewPermissions creates the permissions store.
func NewPermissions(api PermissionsAPI, opts ...Option) *Permissions {
	return &Permissions{
		res: NewResource[sdk.Permission, sdk.CreatePermissionInput, struct{}](
			"permission", permissionCollection{api: api}, func(p sdk.Permission) string { return p.ID }, opts...),
	}
}

func (p *Permissions) State() ResourceState[sdk.Permission] {
	return p.res.State()
}

func (p *Permissions) Subscribe(fn func(ResourceState[sdk.Permission])) func() {
	return p.res.Subscribe(fn)
}

func (p *Permissions) FetchAll(ctx context.Context) {
	p.res.FetchAll(ctx)
}

func (p *Permissions) Create(ctx context.Context, input sdk.CreatePermissionInput) (*sdk.Permission, error) {
	return p.res.Create(ctx, input)
}
