package store

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
)

// AuthorizationAPI is the role assignment and permission check surface.
type AuthorizationAPI interface {
	AssignRole(ctx context.Context, input sdk.AssignRoleInput) error
	RevokeRole(ctx context.Context, userID, roleID string) error
	GetUserRoles(ctx context.Context, userID string) ([]sdk.Role, error)
	GetUserPermissions(ctx context.Context, userID string) ([]sdk.Permission, error)
	CheckPermission(ctx context.Context, input sdk.CheckPermissionInput) (bool, error)
}

// AuthorizationState caches roles and permissions per user id. Entries are
// filled on demand and only replaced by a later fetch.
type AuthorizationState struct {
	UserRoles       map[string][]sdk.Role
	UserPermissions map[string][]sdk.Permission
	IsLoading       bool
	Error           string
}

// Authorization manages role grants. Grants are never patched locally: every
// assign or revoke is followed by a re-fetch of the user's roles, so server
// side effects such as hierarchy expansion show up in the cache.
type Authorization struct {
	api      AuthorizationAPI
	notifier notify.Notifier
	logger   *zap.Logger

	state *observable[AuthorizationState]

	seqMu sync.Mutex
	seq   map[string]uint64
}

// NewAuthorization creates the authorization store.
func NewAuthorization(api AuthorizationAPI, opts ...Option) *Authorization {
	o := applyOptions(opts)
	return &Authorization{
		api:      api,
		notifier: o.notifier,
		logger:   o.logger.Named("authorization"),
		state: newObservable(AuthorizationState{
			UserRoles:       map[string][]sdk.Role{},
			UserPermissions: map[string][]sdk.Permission{},
		}),
		seq: map[string]uint64{},
	}
}

// State returns a snapshot of the store.
func (a *Authorization) State() AuthorizationState {
	return a.state.get()
}

// Subscribe registers fn for state changes and returns the unsubscribe func.
func (a *Authorization) Subscribe(fn func(AuthorizationState)) func() {
	return a.state.subscribe(fn)
}

// Roles returns the cached roles of userID.
func (a *Authorization) Roles(userID string) ([]sdk.Role, bool) {
	roles, ok := a.State().UserRoles[userID]
	return roles, ok
}

// Permissions returns the cached permissions of userID.
func (a *Authorization) Permissions(userID string) ([]sdk.Permission, bool) {
	perms, ok := a.State().UserPermissions[userID]
	return perms, ok
}

// FetchUserRoles replaces the cached role list of userID. Failures are
// recorded in State().Error.
func (a *Authorization) FetchUserRoles(ctx context.Context, userID string) {
	seq := a.nextSeq("roles:" + userID)
	a.begin()

	roles, err := a.api.GetUserRoles(ctx, userID)
	a.state.update(func(st *AuthorizationState) bool {
		if !a.latest("roles:"+userID, seq) {
			a.logger.Debug("discarding stale roles response", zap.String("user_id", userID))
			return false
		}
		st.IsLoading = false
		if err != nil {
			st.Error = sdk.ErrorMessage(err, "Failed to fetch user roles")
			return true
		}
		next := maps.Clone(st.UserRoles)
		next[userID] = append([]sdk.Role(nil), roles...)
		st.UserRoles = next
		return true
	})
	if err != nil {
		a.logger.Warn("fetch user roles failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// FetchUserPermissions replaces the cached effective permissions of userID.
func (a *Authorization) FetchUserPermissions(ctx context.Context, userID string) {
	seq := a.nextSeq("permissions:" + userID)
	a.begin()

	perms, err := a.api.GetUserPermissions(ctx, userID)
	a.state.update(func(st *AuthorizationState) bool {
		if !a.latest("permissions:"+userID, seq) {
			a.logger.Debug("discarding stale permissions response", zap.String("user_id", userID))
			return false
		}
		st.IsLoading = false
		if err != nil {
			st.Error = sdk.ErrorMessage(err, "Failed to fetch user permissions")
			return true
		}
		next := maps.Clone(st.UserPermissions)
		next[userID] = append([]sdk.Permission(nil), perms...)
		st.UserPermissions = next
		return true
	})
	if err != nil {
		a.logger.Warn("fetch user permissions failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// AssignRole grants roleID to userID and re-fetches the user's roles.
func (a *Authorization) AssignRole(ctx context.Context, userID, roleID string) error {
	a.begin()
	if err := a.api.AssignRole(ctx, sdk.AssignRoleInput{UserID: userID, RoleID: roleID}); err != nil {
		return a.fail("assign role", err)
	}
	notify.Success(a.notifier, "authorization", "Role assigned successfully")
	a.FetchUserRoles(ctx, userID)
	return nil
}

// RevokeRole removes roleID from userID and re-fetches the user's roles.
func (a *Authorization) RevokeRole(ctx context.Context, userID, roleID string) error {
	a.begin()
	if err := a.api.RevokeRole(ctx, userID, roleID); err != nil {
		return a.fail("revoke role", err)
	}
	notify.Success(a.notifier, "authorization", "Role revoked successfully")
	a.FetchUserRoles(ctx, userID)
	return nil
}

// CheckPermission asks the server whether userID may perform action on
// resource. Any error counts as a denial. State is not touched.
func (a *Authorization) CheckPermission(ctx context.Context, userID, resource, action string) bool {
	allowed, err := a.api.CheckPermission(ctx, sdk.CheckPermissionInput{
		UserID:   userID,
		Resource: resource,
		Action:   action,
	})
	if err != nil {
		a.logger.Warn("permission check failed, denying",
			zap.String("user_id", userID),
			zap.String("resource", resource),
			zap.String("action", action),
			zap.Error(err),
		)
		return false
	}
	return allowed
}

func (a *Authorization) begin() {
	a.state.set(func(st *AuthorizationState) {
		st.IsLoading = true
		st.Error = ""
	})
}

func (a *Authorization) fail(op string, err error) error {
	message := sdk.ErrorMessage(err, "Failed to "+op)
	a.state.set(func(st *AuthorizationState) {
		st.IsLoading = false
		st.Error = message
	})
	if !errors.Is(err, sdk.ErrValidation) {
		a.logger.Info("mutation failed", zap.String("op", op), zap.Error(err))
	}
	notify.Error(a.notifier, "authorization", "Failed to "+op+": "+message)
	return err
}

func (a *Authorization) nextSeq(key string) uint64 {
	a.seqMu.Lock()
	defer a.seqMu.Unlock()
	a.seq[key]++
	return a.seq[key]
}

func (a *Authorization) latest(key string, seq uint64) bool {
	a.seqMu.Lock()
	defer a.seqMu.Unlock()
	return a.seq[key] == seq
}
