package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// AssignRole grants a role to a user.
func (c *Client) AssignRole(ctx context.Context, input AssignRoleInput) error {
	if input.UserID == "" || input.RoleID == "" {
		return fmt.Errorf("user ID and role ID are required")
	}
	_, err := c.Do(ctx, http.MethodPost, "/authorization/assign-role", input, nil)
	return err
}

// RevokeRole removes a role grant from a user.
func (c *Client) RevokeRole(ctx context.Context, userID, roleID string) error {
	if userID == "" || roleID == "" {
		return fmt.Errorf("user ID and role ID are required")
	}
	path := fmt.Sprintf("/authorization/users/%s/roles/%s", url.PathEscape(userID), url.PathEscape(roleID))
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// GetUserRoles returns the roles the server currently grants to a user,
// including any expanded by role hierarchy.
func (c *Client) GetUserRoles(ctx context.Context, userID string) ([]Role, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return doJSON[[]Role](ctx, c, http.MethodGet, "/authorization/users/"+url.PathEscape(userID)+"/roles", nil, callOptions{})
}

// GetUserPermissions returns the effective permissions of a user.
func (c *Client) GetUserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return doJSON[[]Permission](ctx, c, http.MethodGet, "/authorization/users/"+url.PathEscape(userID)+"/permissions", nil, callOptions{})
}

// CheckPermission asks whether userID may perform action on resource.
// Errors are returned as-is; callers that must fail closed treat any error as a denial.
func (c *Client) CheckPermission(ctx context.Context, input CheckPermissionInput) (bool, error) {
	result, err := doJSON[struct {
		HasPermission bool `json:"hasPermission"`
	}](ctx, c, http.MethodPost, "/authorization/check-permission", input, callOptions{})
	if err != nil {
		return false, err
	}
	return result.HasPermission, nil
}
