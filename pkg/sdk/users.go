package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListUsers returns every user in server order.
func (c *Client) ListUsers(ctx context.Context) ([]UserRecord, error) {
	return doJSON[[]UserRecord](ctx, c, http.MethodGet, "/users", nil, callOptions{})
}

// ListUsersByOrganization returns the users of one organization.
func (c *Client) ListUsersByOrganization(ctx context.Context, orgID string) ([]UserRecord, error) {
	if orgID == "" {
		return nil, fmt.Errorf("organization ID is required")
	}
	return doJSON[[]UserRecord](ctx, c, http.MethodGet, "/users/organization/"+url.PathEscape(orgID), nil, callOptions{})
}

// GetUser returns a single user.
func (c *Client) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return doJSON[*UserRecord](ctx, c, http.MethodGet, "/users/"+url.PathEscape(id), nil, callOptions{})
}

// CreateUser creates a user and returns the stored record.
func (c *Client) CreateUser(ctx context.Context, input CreateUserInput) (*UserRecord, error) {
	return doJSON[*UserRecord](ctx, c, http.MethodPost, "/users", input, callOptions{})
}

// UpdateUser applies a partial update and returns the stored record.
func (c *Client) UpdateUser(ctx context.Context, id string, input UpdateUserInput) (*UserRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return doJSON[*UserRecord](ctx, c, http.MethodPut, "/users/"+url.PathEscape(id), input, callOptions{})
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("user ID is required")
	}
	_, err := c.Do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
	return err
}
