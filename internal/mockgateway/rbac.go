package mockgateway

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Grants and role inheritance live in g; role permissions in p as
// (role, resource, action).
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

const (
	userPrefix = "user:"
	rolePrefix = "role:"
)

func userSubject(id string) string { return userPrefix + id }
func roleSubject(id string) string { return rolePrefix + id }

// rbac wraps the casbin enforcer with the gateway's subject naming.
type rbac struct {
	enforcer *casbin.SyncedEnforcer
}

func newRBAC() (*rbac, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	return &rbac{enforcer: enforcer}, nil
}

func (r *rbac) grant(userID, roleID string) (bool, error) {
	return r.enforcer.AddGroupingPolicy(userSubject(userID), roleSubject(roleID))
}

func (r *rbac) revoke(userID, roleID string) (bool, error) {
	return r.enforcer.RemoveGroupingPolicy(userSubject(userID), roleSubject(roleID))
}

// inherit makes child carry every permission of parent.
func (r *rbac) inherit(childID, parentID string) error {
	_, err := r.enforcer.AddGroupingPolicy(roleSubject(childID), roleSubject(parentID))
	return err
}

func (r *rbac) allow(roleID, resource, action string) error {
	_, err := r.enforcer.AddPolicy(roleSubject(roleID), resource, action)
	return err
}

// setPermissions replaces the (resource, action) pairs of roleID.
func (r *rbac) setPermissions(roleID string, pairs [][2]string) error {
	if _, err := r.enforcer.RemoveFilteredPolicy(0, roleSubject(roleID)); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := r.allow(roleID, p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func (r *rbac) dropRole(roleID string) error {
	sub := roleSubject(roleID)
	if _, err := r.enforcer.RemoveFilteredPolicy(0, sub); err != nil {
		return err
	}
	if _, err := r.enforcer.RemoveFilteredGroupingPolicy(0, sub); err != nil {
		return err
	}
	_, err := r.enforcer.RemoveFilteredGroupingPolicy(1, sub)
	return err
}

func (r *rbac) dropUser(userID string) error {
	_, err := r.enforcer.RemoveFilteredGroupingPolicy(0, userSubject(userID))
	return err
}

// rolesOf returns the ids of every role userID holds, directly or inherited.
func (r *rbac) rolesOf(userID string) ([]string, error) {
	subjects, err := r.enforcer.GetImplicitRolesForUser(userSubject(userID))
	if err != nil {
		return nil, err
	}
	return trimPrefixed(subjects, rolePrefix), nil
}

// holders returns the ids of users granted roleID directly.
func (r *rbac) holders(roleID string) ([]string, error) {
	subjects, err := r.enforcer.GetUsersForRole(roleSubject(roleID))
	if err != nil {
		return nil, err
	}
	return trimPrefixed(subjects, userPrefix), nil
}

func (r *rbac) enforce(userID, resource, action string) (bool, error) {
	return r.enforcer.Enforce(userSubject(userID), resource, action)
}

func trimPrefixed(subjects []string, prefix string) []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if id, ok := strings.CutPrefix(s, prefix); ok {
			out = append(out, id)
		}
	}
	return out
}
