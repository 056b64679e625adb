package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListRoles returns every role in server order.
func (c *Client) ListRoles(ctx context.Context) ([]Role, error) {
	return doJSON[[]Role](ctx, c, http.MethodGet, "/roles", nil, callOptions{})
}

// GetRole returns a single role with its embedded permissions.
func (c *Client) GetRole(ctx context.Context, id string) (*Role, error) {
	if id == "" {
		return nil, fmt.Errorf("role ID is required")
	}
	return doJSON[*Role](ctx, c, http.MethodGet, "/roles/"+url.PathEscape(id), nil, callOptions{})
}

// CreateRole creates a role.
func (c *Client) CreateRole(ctx context.Context, input CreateRoleInput) (*Role, error) {
	return doJSON[*Role](ctx, c, http.MethodPost, "/roles", input, callOptions{})
}

// UpdateRole applies a partial update to a role.
func (c *Client) UpdateRole(ctx context.Context, id string, input UpdateRoleInput) (*Role, error) {
	if id == "" {
		return nil, fmt.Errorf("role ID is required")
	}
	return doJSON[*Role](ctx, c, http.MethodPut, "/roles/"+url.PathEscape(id), input, callOptions{})
}

// DeleteRole removes a role.
func (c *Client) DeleteRole(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("role ID is required")
	}
	_, err := c.Do(ctx, http.MethodDelete, "/roles/"+url.PathEscape(id), nil, nil)
	return err
}

// ListPermissions returns every permission.
func (c *Client) ListPermissions(ctx context.Context) ([]Permission, error) {
	return doJSON[[]Permission](ctx, c, http.MethodGet, "/permissions", nil, callOptions{})
}

// CreatePermission creates a permission.
func (c *Client) CreatePermission(ctx context.Context, input CreatePermissionInput) (*Permission, error) {
	return doJSON[*Permission](ctx, c, http.MethodPost, "/permissions", input, callOptions{})
}
