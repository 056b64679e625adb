package mockgateway

import (
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"golang.org/x/crypto/bcrypt"
)

const (
	statusActive   = 1
	statusDisabled = 2
)

// AddUser creates a user. The password is stored as a bcrypt hash.
func (g *Gateway) AddUser(input sdk.CreateUserInput) (*sdk.UserRecord, error) {
	var fields []sdk.FieldError
	if strings.TrimSpace(input.Email) == "" {
		fields = append(fields, sdk.FieldError{Field: "email", Message: "Email is required"})
	} else if !strings.Contains(input.Email, "@") {
		fields = append(fields, sdk.FieldError{Field: "email", Message: "Email is invalid"})
	}
	if strings.TrimSpace(input.Username) == "" {
		fields = append(fields, sdk.FieldError{Field: "username", Message: "Username is required"})
	}
	if len(fields) > 0 {
		return nil, errFields(fields...)
	}

	var hash []byte
	if input.Password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(input.Password), g.opts.BcryptCost)
		if err != nil {
			return nil, err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.userByEmail(input.Email) != nil {
		return nil, errConflict("User with this email already exists")
	}

	now := g.now().UTC()
	record := sdk.UserRecord{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		OrgID:        input.OrgID,
		DepartmentID: input.DepartmentID,
		AuthTypeID:   input.AuthTypeID,
		UserTypeID:   input.UserTypeID,
		StatusID:     statusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	g.users[record.ID] = &userEntry{record: record, passwordHash: hash}
	g.userOrder = append(g.userOrder, record.ID)
	return &record, nil
}

// AddRole creates a role. A non-empty parentID makes it inherit that role.
func (g *Gateway) AddRole(input sdk.CreateRoleInput, parentID string) (*sdk.Role, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errFields(sdk.FieldError{Field: "name", Message: "Role name is required"})
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.roleOrder {
		if strings.EqualFold(g.roles[id].role.Name, input.Name) {
			return nil, errConflict("Role with this name already exists")
		}
	}
	pairs, err := g.permissionPairs(input.PermissionIDs)
	if err != nil {
		return nil, err
	}

	now := g.now().UTC()
	entry := &roleEntry{
		role: sdk.Role{
			ID:          uuid.NewString(),
			Name:        input.Name,
			Description: input.Description,
			OrgID:       input.OrgID,
			RoleType:    input.RoleType,
			IsSystem:    input.RoleType == "system",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		permissionIDs: slices.Clone(input.PermissionIDs),
	}
	if err := g.rbac.setPermissions(entry.role.ID, pairs); err != nil {
		return nil, err
	}
	if parentID != "" {
		if _, ok := g.roles[parentID]; !ok {
			return nil, errNotFound("Parent role not found")
		}
		if err := g.rbac.inherit(entry.role.ID, parentID); err != nil {
			return nil, err
		}
	}
	g.roles[entry.role.ID] = entry
	g.roleOrder = append(g.roleOrder, entry.role.ID)
	role := g.roleView(entry)
	return &role, nil
}

// AddPermission creates a permission, unique by (resource, action).
func (g *Gateway) AddPermission(input sdk.CreatePermissionInput) (*sdk.Permission, error) {
	var fields []sdk.FieldError
	if strings.TrimSpace(input.Name) == "" {
		fields = append(fields, sdk.FieldError{Field: "name", Message: "Permission name is required"})
	}
	if strings.TrimSpace(input.Resource) == "" {
		fields = append(fields, sdk.FieldError{Field: "resource", Message: "Resource is required"})
	}
	if strings.TrimSpace(input.Action) == "" {
		fields = append(fields, sdk.FieldError{Field: "action", Message: "Action is required"})
	}
	if len(fields) > 0 {
		return nil, errFields(fields...)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.permOrder {
		p := g.permissions[id]
		if p.Resource == input.Resource && p.Action == input.Action {
			return nil, errConflict("Permission already exists")
		}
	}
	perm := sdk.Permission{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Resource:    input.Resource,
		Action:      input.Action,
		Description: input.Description,
		Category:    input.Category,
		CreatedAt:   g.now().UTC(),
	}
	g.permissions[perm.ID] = perm
	g.permOrder = append(g.permOrder, perm.ID)
	return &perm, nil
}

// callers hold g.mu for everything below

func (g *Gateway) userByEmail(email string) *userEntry {
	for _, id := range g.userOrder {
		if strings.EqualFold(g.users[id].record.Email, email) {
			return g.users[id]
		}
	}
	return nil
}

func (g *Gateway) permissionPairs(ids []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(ids))
	for _, id := range ids {
		p, ok := g.permissions[id]
		if !ok {
			return nil, errBadRequest("Unknown permission: " + id)
		}
		pairs = append(pairs, [2]string{p.Resource, p.Action})
	}
	return pairs, nil
}

func (g *Gateway) roleView(entry *roleEntry) sdk.Role {
	role := entry.role
	role.Permissions = make([]sdk.Permission, 0, len(entry.permissionIDs))
	for _, id := range entry.permissionIDs {
		if p, ok := g.permissions[id]; ok {
			role.Permissions = append(role.Permissions, p)
		}
	}
	holders, err := g.rbac.holders(role.ID)
	if err == nil {
		role.UserCount = len(holders)
	}
	return role
}

func (g *Gateway) identity(rec sdk.UserRecord) sdk.UserIdentity {
	status := "active"
	if rec.StatusID == statusDisabled {
		status = "disabled"
	}
	return sdk.UserIdentity{
		ID:           rec.ID,
		Email:        rec.Email,
		Username:     rec.Username,
		FirstName:    rec.FirstName,
		LastName:     rec.LastName,
		OrgID:        rec.OrgID,
		DepartmentID: rec.DepartmentID,
		Status:       status,
	}
}

// effectivePermissions lists the permission records userID holds through
// any role, in creation order.
func (g *Gateway) effectivePermissions(userID string) ([]sdk.Permission, error) {
	out := []sdk.Permission{}
	for _, id := range g.permOrder {
		p := g.permissions[id]
		ok, err := g.rbac.enforce(userID, p.Resource, p.Action)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func statusText(code int) string {
	return http.StatusText(code)
}
