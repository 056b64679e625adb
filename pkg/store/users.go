package store

import (
	"context"

	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// UsersAPI is the user management surface of the gateway.
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]sdk.UserRecord, error)
	ListUsersByOrganization(ctx context.Context, orgID string) ([]sdk.UserRecord, error)
	GetUser(ctx context.Context, id string) (*sdk.UserRecord, error)
	CreateUser(ctx context.Context, input sdk.CreateUserInput) (*sdk.UserRecord, error)
	UpdateUser(ctx context.Context, id string, input sdk.UpdateUserInput) (*sdk.UserRecord, error)
	DeleteUser(ctx context.Context, id string) error
}

type userCollection struct{ api UsersAPI }

func (c userCollection) List(ctx context.Context) ([]sdk.UserRecord, error) {
	return c.api.ListUsers(ctx)
}

func (c userCollection) Get(ctx context.Context, id string) (*sdk.UserRecord, error) {
	return c.api.GetUser(ctx, id)
}

func (c userCollection) Create(ctx context.Context, input sdk.CreateUserInput) (*sdk.UserRecord, error) {
	return c.api.CreateUser(ctx, input)
}

func (c userCollection) Update(ctx context.Context, id string, input sdk.UpdateUserInput) (*sdk.UserRecord, error) {
	return c.api.UpdateUser(ctx, id, input)
}

func (c userCollection) Delete(ctx context.Context, id string) error {
	return c.api.DeleteUser(ctx, id)
}

// Users is the store of managed users.
type Users struct {
	*Resource[sdk.UserRecord, sdk.CreateUserInput, sdk.UpdateUserInput]
	api UsersAPI
}

// NewUsers creates the users store.
func NewUsers(api UsersAPI, opts ...Option) *Users {
	return &Users{
		Resource: NewResource[sdk.UserRecord, sdk.CreateUserInput, sdk.UpdateUserInput](
			"user", userCollection{api: api}, func(u sdk.UserRecord) string { return u.ID }, opts...),
		api: api,
	}
}

// FetchByOrganization replaces the collection with the users of one
// organization. It shares the list slot with FetchAll, so whichever was
// issued last wins.
func (u *Users) FetchByOrganization(ctx context.Context, orgID string) {
	u.fetchList(ctx, "list_by_org", func(ctx context.Context) ([]sdk.UserRecord, error) {
		return u.api.ListUsersByOrganization(ctx, orgID)
	})
}
