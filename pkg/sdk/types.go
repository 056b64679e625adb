package sdk

import (
	"strings"
	"time"
)

// UserIdentity is the snapshot of the authenticated principal returned as
// userInfo by the login and refresh endpoints. It is replaced wholesale.
type UserIdentity struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	OrgID        string `json:"orgId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	UserType     string `json:"userType,omitempty"`
	Status       string `json:"status,omitempty"`
}

// DisplayName returns "First Last", falling back to the username and email.
func (u UserIdentity) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case name != "":
		return name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// UserRecord is a managed system user.
type UserRecord struct {
	ID           string    `json:"id" bexpr:"id"`
	Email        string    `json:"email" bexpr:"email"`
	Username     string    `json:"username" bexpr:"username"`
	FirstName    string    `json:"firstName,omitempty" bexpr:"first_name"`
	LastName     string    `json:"lastName,omitempty" bexpr:"last_name"`
	OrgID        string    `json:"orgId,omitempty" bexpr:"org_id"`
	DepartmentID string    `json:"departmentId,omitempty" bexpr:"department_id"`
	AuthTypeID   int       `json:"authTypeId,omitempty" bexpr:"auth_type_id"`
	UserTypeID   int       `json:"userTypeId,omitempty" bexpr:"user_type_id"`
	StatusID     int       `json:"userStatusId,omitempty" bexpr:"status_id"`
	CreatedAt    time.Time `json:"createdAt,omitempty" bexpr:"-"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" bexpr:"-"`
}

// CreateUserInput is the payload for POST /users.
type CreateUserInput struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Password     string `json:"password,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	OrgID        string `json:"orgId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
	AuthTypeID   int    `json:"authTypeId,omitempty"`
	UserTypeID   int    `json:"userTypeId,omitempty"`
}

// UpdateUserInput is the partial payload for PUT /users/:id. Nil fields are
// left untouched by the server.
type UpdateUserInput struct {
	Email        *string `json:"email,omitempty"`
	Username     *string `json:"username,omitempty"`
	FirstName    *string `json:"firstName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	OrgID        *string `json:"orgId,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty"`
	UserTypeID   *int    `json:"userTypeId,omitempty"`
	StatusID     *int    `json:"userStatusId,omitempty"`
}

// Permission is a grantable (resource, action) pair.
type Permission struct {
	ID          string    `json:"id" bexpr:"id"`
	Name        string    `json:"name" bexpr:"name"`
	Resource    string    `json:"resource" bexpr:"resource"`
	Action      string    `json:"action" bexpr:"action"`
	Description string    `json:"description,omitempty" bexpr:"description"`
	Category    string    `json:"category,omitempty" bexpr:"category"`
	CreatedAt   time.Time `json:"createdAt,omitempty" bexpr:"-"`
}

// CreatePermissionInput is the payload for POST /permissions.
type CreatePermissionInput struct {
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Role groups permissions. Permissions and UserCount are denormalized by the
// server and are only as fresh as the last fetch.
type Role struct {
	ID          string       `json:"id" bexpr:"id"`
	Name        string       `json:"name" bexpr:"name"`
	Description string       `json:"description,omitempty" bexpr:"description"`
	OrgID       string       `json:"orgId,omitempty" bexpr:"org_id"`
	RoleType    string       `json:"roleType,omitempty" bexpr:"role_type"`
	IsSystem    bool         `json:"isSystem,omitempty" bexpr:"is_system"`
	Permissions []Permission `json:"permissions,omitempty" bexpr:"-"`
	UserCount   int          `json:"userCount,omitempty" bexpr:"user_count"`
	CreatedAt   time.Time    `json:"createdAt,omitempty" bexpr:"-"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty" bexpr:"-"`
}

// CreateRoleInput is the payload for POST /roles.
type CreateRoleInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	OrgID         string   `json:"orgId,omitempty"`
	RoleType      string   `json:"roleType,omitempty"`
	PermissionIDs []string `json:"permissionIds,omitempty"`
}

// UpdateRoleInput is the partial payload for PUT /roles/:id.
type UpdateRoleInput struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	RoleType      *string  `json:"roleType,omitempty"`
	PermissionIDs []string `json:"permissionIds,omitempty"`
}

// AssignRoleInput is the payload for POST /authorization/assign-role.
type AssignRoleInput struct {
	UserID string `json:"userId"`
	RoleID string `json:"roleId"`
}

// CheckPermissionInput is the payload for POST /authorization/check-permission.
type CheckPermissionInput struct {
	UserID   string `json:"userId"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// LoginInput carries email/password credentials.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the data payload of POST /auth/login.
type LoginResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	UserInfo     UserIdentity `json:"userInfo"`
	LoginAt      time.Time    `json:"loginAt,omitempty"`
}

// RefreshResult is the data payload of POST /auth/refresh. RefreshToken is
// set only by servers that rotate refresh tokens.
type RefreshResult struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken,omitempty"`
	TokenType    string        `json:"tokenType,omitempty"`
	ExpiresIn    int64         `json:"expiresIn,omitempty"`
	UserInfo     *UserIdentity `json:"userInfo,omitempty"`
}

// ValidateResult is the data payload of POST /auth/validate.
type ValidateResult struct {
	Valid    bool          `json:"valid"`
	UserInfo *UserIdentity `json:"userInfo,omitempty"`
}

// HealthReport is the decoded payload of a /health endpoint. Services report
// free-form details, which are kept in Details.
type HealthReport struct {
	Service string         `mapstructure:"service"`
	Status  string         `mapstructure:"status"`
	Version string         `mapstructure:"version"`
	Uptime  string         `mapstructure:"uptime"`
	Details map[string]any `mapstructure:",remain"`
}

// Healthy reports whether Status denotes a serving service.
func (h HealthReport) Healthy() bool {
	switch strings.ToLower(h.Status) {
	case "", "up", "ok", "healthy", "serving":
		return true
	default:
		return false
	}
}
