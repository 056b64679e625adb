package mockgateway

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type principalKey struct{}

// requireAuth rejects requests without a live access token issued here.
func (g *Gateway) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := g.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gateway) authenticate(r *http.Request) (string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return "", errUnauthorized("Authentication required")
	}
	claims, err := g.tokens.verify(raw)
	if err != nil {
		return "", errUnauthorized("Invalid or expired token")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.access[raw] != claims.Subject {
		return "", errUnauthorized("Invalid or expired token")
	}
	if _, ok := g.users[claims.Subject]; !ok {
		return "", errUnauthorized("User no longer exists")
	}
	return claims.Subject, nil
}

func (g *Gateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req sdk.LoginInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var fields []sdk.FieldError
	if req.Email == "" {
		fields = append(fields, sdk.FieldError{Field: "email", Message: "Email is required"})
	}
	if req.Password == "" {
		fields = append(fields, sdk.FieldError{Field: "password", Message: "Password is required"})
	}
	if len(fields) > 0 {
		writeError(w, &apiError{status: http.StatusBadRequest, fields: fields})
		return
	}

	g.mu.Lock()
	entry := g.userByEmail(req.Email)
	var hash []byte
	var record sdk.UserRecord
	if entry != nil {
		hash = entry.passwordHash
		record = entry.record
	}
	g.mu.Unlock()

	if entry == nil || len(hash) == 0 || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		writeError(w, errUnauthorized("Invalid email or password"))
		return
	}
	if record.StatusID == statusDisabled {
		writeError(w, errForbidden("Account disabled"))
		return
	}

	access, err := g.tokens.issue(record.ID, record.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	refresh := newRefreshToken()

	g.mu.Lock()
	g.access[access] = record.ID
	g.refresh[refresh] = record.ID
	identity := g.identity(record)
	g.mu.Unlock()

	g.logger.Info("login", zap.String("user_id", record.ID))
	writeData(w, http.StatusOK, sdk.LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(g.opts.AccessTTL / time.Second),
		UserInfo:     identity,
		LoginAt:      g.now().UTC(),
	})
}

func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	g.mu.Lock()
	userID, ok := g.access[req.AccessToken]
	delete(g.access, req.AccessToken)
	if ok {
		for token, owner := range g.refresh {
			if owner == userID {
				delete(g.refresh, token)
			}
		}
	}
	g.mu.Unlock()
	writeMessage(w, "Logged out successfully")
}

func (g *Gateway) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	g.mu.Lock()
	userID, ok := g.refresh[req.RefreshToken]
	entry := g.users[userID]
	g.mu.Unlock()
	if !ok || entry == nil {
		writeError(w, errUnauthorized("Invalid refresh token"))
		return
	}

	access, err := g.tokens.issue(userID, entry.record.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	result := sdk.RefreshResult{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(g.opts.AccessTTL / time.Second),
	}

	g.mu.Lock()
	g.access[access] = userID
	if g.opts.RotateRefreshTokens {
		delete(g.refresh, req.RefreshToken)
		result.RefreshToken = newRefreshToken()
		g.refresh[result.RefreshToken] = userID
	}
	identity := g.identity(entry.record)
	g.mu.Unlock()
	result.UserInfo = &identity

	writeData(w, http.StatusOK, result)
}

func (g *Gateway) handleValidate(w http.ResponseWriter, r *http.Request) {
	userID, err := g.authenticate(r)
	if err != nil {
		writeData(w, http.StatusOK, sdk.ValidateResult{Valid: false})
		return
	}
	g.mu.Lock()
	identity := g.identity(g.users[userID].record)
	g.mu.Unlock()
	writeData(w, http.StatusOK, sdk.ValidateResult{Valid: true, UserInfo: &identity})
}

func (g *Gateway) handleHealth(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]any{
			"service": service,
			"status":  "healthy",
			"version": defaultVersion,
			"uptime":  g.now().Sub(g.started).Round(time.Second).String(),
		})
	}
}

// users

func (g *Gateway) handleListUsers(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, g.listUsers(""))
}

func (g *Gateway) handleListUsersByOrg(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, g.listUsers(chi.URLParam(r, "orgId")))
}

func (g *Gateway) listUsers(orgID string) []sdk.UserRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]sdk.UserRecord, 0, len(g.userOrder))
	for _, id := range g.userOrder {
		rec := g.users[id].record
		if orgID != "" && rec.OrgID != orgID {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (g *Gateway) handleGetUser(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	entry, ok := g.users[chi.URLParam(r, "id")]
	var rec sdk.UserRecord
	if ok {
		rec = entry.record
	}
	g.mu.Unlock()
	if !ok {
		writeError(w, errNotFound("User not found"))
		return
	}
	writeData(w, http.StatusOK, rec)
}

func (g *Gateway) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req sdk.CreateUserInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rec, err := g.AddUser(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, rec)
}

func (g *Gateway) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req sdk.UpdateUserInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.users[id]
	if !ok {
		writeError(w, errNotFound("User not found"))
		return
	}
	if req.Email != nil {
		if other := g.userByEmail(*req.Email); other != nil && other.record.ID != id {
			writeError(w, errConflict("User with this email already exists"))
			return
		}
	}
	rec := entry.record
	applyString(&rec.Email, req.Email)
	applyString(&rec.Username, req.Username)
	applyString(&rec.FirstName, req.FirstName)
	applyString(&rec.LastName, req.LastName)
	applyString(&rec.OrgID, req.OrgID)
	applyString(&rec.DepartmentID, req.DepartmentID)
	if req.UserTypeID != nil {
		rec.UserTypeID = *req.UserTypeID
	}
	if req.StatusID != nil {
		rec.StatusID = *req.StatusID
	}
	rec.UpdatedAt = g.now().UTC()
	entry.record = rec
	writeData(w, http.StatusOK, rec)
}

func (g *Gateway) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[id]; !ok {
		writeError(w, errNotFound("User not found"))
		return
	}
	if err := g.rbac.dropUser(id); err != nil {
		writeError(w, err)
		return
	}
	delete(g.users, id)
	g.userOrder = slices.DeleteFunc(g.userOrder, func(v string) bool { return v == id })
	writeMessage(w, "User deleted successfully")
}

// roles and permissions

func (g *Gateway) handleListRoles(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]sdk.Role, 0, len(g.roleOrder))
	for _, id := range g.roleOrder {
		out = append(out, g.roleView(g.roles[id]))
	}
	writeData(w, http.StatusOK, out)
}

func (g *Gateway) handleGetRole(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.roles[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, errNotFound("Role not found"))
		return
	}
	writeData(w, http.StatusOK, g.roleView(entry))
}

func (g *Gateway) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req sdk.CreateRoleInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	role, err := g.AddRole(req, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, role)
}

func (g *Gateway) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var req sdk.UpdateRoleInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")

	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.roles[id]
	if !ok {
		writeError(w, errNotFound("Role not found"))
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, errFields(sdk.FieldError{Field: "name", Message: "Role name is required"}))
			return
		}
		for _, other := range g.roles {
			if other.role.ID != id && strings.EqualFold(other.role.Name, *req.Name) {
				writeError(w, errConflict("Role with this name already exists"))
				return
			}
		}
	}
	if req.PermissionIDs != nil {
		pairs, err := g.permissionPairs(req.PermissionIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := g.rbac.setPermissions(id, pairs); err != nil {
			writeError(w, err)
			return
		}
		entry.permissionIDs = slices.Clone(req.PermissionIDs)
	}
	applyString(&entry.role.Name, req.Name)
	applyString(&entry.role.Description, req.Description)
	applyString(&entry.role.RoleType, req.RoleType)
	entry.role.UpdatedAt = g.now().UTC()
	writeData(w, http.StatusOK, g.roleView(entry))
}

func (g *Gateway) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.roles[id]
	if !ok {
		writeError(w, errNotFound("Role not found"))
		return
	}
	if entry.role.IsSystem {
		writeError(w, errForbidden("System roles cannot be deleted"))
		return
	}
	if err := g.rbac.dropRole(id); err != nil {
		writeError(w, err)
		return
	}
	delete(g.roles, id)
	g.roleOrder = slices.DeleteFunc(g.roleOrder, func(v string) bool { return v == id })
	writeMessage(w, "Role deleted successfully")
}

func (g *Gateway) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]sdk.Permission, 0, len(g.permOrder))
	for _, id := range g.permOrder {
		out = append(out, g.permissions[id])
	}
	writeData(w, http.StatusOK, out)
}

func (g *Gateway) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var req sdk.CreatePermissionInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	perm, err := g.AddPermission(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, perm)
}

// authorization

func (g *Gateway) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req sdk.AssignRoleInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := g.checkUserAndRole(req.UserID, req.RoleID); err != nil {
		writeError(w, err)
		return
	}
	if _, err := g.rbac.grant(req.UserID, req.RoleID); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, "Role assigned successfully")
}

func (g *Gateway) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID := chi.URLParam(r, "userId"), chi.URLParam(r, "roleId")
	if err := g.checkUserAndRole(userID, roleID); err != nil {
		writeError(w, err)
		return
	}
	removed, err := g.rbac.revoke(userID, roleID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !removed {
		writeError(w, errNotFound("Role assignment not found"))
		return
	}
	writeMessage(w, "Role revoked successfully")
}

func (g *Gateway) checkUserAndRole(userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[userID]; !ok {
		return errNotFound("User not found")
	}
	if _, ok := g.roles[roleID]; !ok {
		return errNotFound("Role not found")
	}
	return nil
}

// handleUserRoles returns every role the user holds, inherited ones included.
func (g *Gateway) handleUserRoles(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	ids, err := g.rbac.rolesOf(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[userID]; !ok {
		writeError(w, errNotFound("User not found"))
		return
	}
	out := make([]sdk.Role, 0, len(ids))
	for _, id := range g.roleOrder {
		if slices.Contains(ids, id) {
			out = append(out, g.roleView(g.roles[id]))
		}
	}
	writeData(w, http.StatusOK, out)
}

func (g *Gateway) handleUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.users[userID]; !ok {
		writeError(w, errNotFound("User not found"))
		return
	}
	perms, err := g.effectivePermissions(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, perms)
}

func (g *Gateway) handleCheckPermission(w http.ResponseWriter, r *http.Request) {
	var req sdk.CheckPermissionInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	allowed, err := g.rbac.enforce(req.UserID, req.Resource, req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"hasPermission": allowed})
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
