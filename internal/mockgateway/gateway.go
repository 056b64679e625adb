// Package mockgateway is an in-memory IAM API gateway serving the REST
// surface iamctl consumes. It backs `iamctl dev mock-gateway` and the
// integration tests of the client packages.
package mockgateway

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/terraconstructs/iamctl/pkg/sdk"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBasePath is where the API is mounted.
	DefaultBasePath = "/api"

	// DefaultAdminEmail and DefaultAdminPassword log into the seeded admin.
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123"

	defaultAccessTTL = 15 * time.Minute
	defaultVersion   = "0.0.0-dev"
)

// Options configures a Gateway. The zero value is valid.
type Options struct {
	BasePath    string
	Secret      []byte
	AccessTTL   time.Duration
	BcryptCost  int
	Logger      *zap.Logger
	Clock       func() time.Time
	CORSOptions *cors.Options
	// RotateRefreshTokens issues a new refresh token on every refresh.
	RotateRefreshTokens bool
	// SkipSeed starts with no users, roles or permissions.
	SkipSeed bool
}

type userEntry struct {
	record       sdk.UserRecord
	passwordHash []byte
}

type roleEntry struct {
	role          sdk.Role
	permissionIDs []string
}

type failure struct {
	remaining int
	status    int
	message   string
}

// Gateway holds the in-memory backend state.
type Gateway struct {
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
	tokens  *tokenIssuer
	rbac    *rbac
	started time.Time

	mu          sync.Mutex
	users       map[string]*userEntry
	userOrder   []string
	roles       map[string]*roleEntry
	roleOrder   []string
	permissions map[string]sdk.Permission
	permOrder   []string
	// access token -> user id; a signed token not in the map is revoked
	access  map[string]string
	refresh map[string]string

	hookMu   sync.Mutex
	failures map[string]*failure
	calls    map[string]int
}

// New creates a gateway, seeded with the default roles and admin unless
// opts.SkipSeed is set.
func New(opts Options) (*Gateway, error) {
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("iamctl-mock-gateway-secret")
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = defaultAccessTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	enforcer, err := newRBAC()
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		opts:   opts,
		logger: logger.Named("mockgateway"),
		now:    opts.Clock,
		tokens: &tokenIssuer{
			secret: opts.Secret,
			ttl:    opts.AccessTTL,
			issuer: "iamctl-mock-gateway",
			now:    opts.Clock,
		},
		rbac:        enforcer,
		started:     opts.Clock(),
		users:       map[string]*userEntry{},
		roles:       map[string]*roleEntry{},
		permissions: map[string]sdk.Permission{},
		access:      map[string]string{},
		refresh:     map[string]string{},
		failures:    map[string]*failure{},
		calls:       map[string]int{},
	}
	if !opts.SkipSeed {
		if err := g.seed(); err != nil {
			return nil, fmt.Errorf("seed gateway: %w", err)
		}
	}
	return g, nil
}

// seed installs viewer < editor < admin and the admin user.
func (g *Gateway) seed() error {
	perms := []sdk.CreatePermissionInput{
		{Name: "Read users", Resource: "users", Action: "read", Category: "users"},
		{Name: "Write users", Resource: "users", Action: "write", Category: "users"},
		{Name: "Read roles", Resource: "roles", Action: "read", Category: "roles"},
		{Name: "Write roles", Resource: "roles", Action: "write", Category: "roles"},
		{Name: "Read permissions", Resource: "permissions", Action: "read", Category: "roles"},
	}
	ids := map[string]string{}
	for _, p := range perms {
		created, err := g.AddPermission(p)
		if err != nil {
			return err
		}
		ids[p.Resource+":"+p.Action] = created.ID
	}

	viewer, err := g.AddRole(sdk.CreateRoleInput{
		Name:          "viewer",
		Description:   "Read-only access",
		PermissionIDs: []string{ids["users:read"], ids["roles:read"], ids["permissions:read"]},
	}, "")
	if err != nil {
		return err
	}
	editor, err := g.AddRole(sdk.CreateRoleInput{
		Name:          "editor",
		Description:   "Manage users",
		PermissionIDs: []string{ids["users:write"]},
	}, viewer.ID)
	if err != nil {
		return err
	}
	admin, err := g.AddRole(sdk.CreateRoleInput{
		Name:          "admin",
		Description:   "Full access",
		RoleType:      "system",
		PermissionIDs: []string{ids["roles:write"]},
	}, editor.ID)
	if err != nil {
		return err
	}

	user, err := g.AddUser(sdk.CreateUserInput{
		Email:     DefaultAdminEmail,
		Username:  "admin",
		Password:  DefaultAdminPassword,
		FirstName: "System",
		LastName:  "Administrator",
		OrgID:     "org-default",
	})
	if err != nil {
		return err
	}
	_, err = g.rbac.grant(user.ID, admin.ID)
	return err
}

// FailNext makes the next n requests to path (relative to the base path,
// e.g. "/users") fail with status and message.
func (g *Gateway) FailNext(path string, n, status int, message string) {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	g.failures[path] = &failure{remaining: n, status: status, message: message}
}

// Calls returns how many requests reached path.
func (g *Gateway) Calls(path string) int {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	return g.calls[path]
}

// RevokeAccessTokens invalidates every issued access token. Refresh tokens
// stay valid, so clients recover with one refresh.
func (g *Gateway) RevokeAccessTokens() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.access = map[string]string{}
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (g *Gateway) RevokeRefreshTokens() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refresh = map[string]string{}
}

// InheritRole makes childID carry every permission of parentID.
func (g *Gateway) InheritRole(childID, parentID string) error {
	return g.rbac.inherit(childID, parentID)
}

// takeFailure records the call and returns the pending failure for path, if any.
func (g *Gateway) takeFailure(path string) *failure {
	g.hookMu.Lock()
	defer g.hookMu.Unlock()
	g.calls[path]++
	f, ok := g.failures[path]
	if !ok {
		return nil
	}
	f.remaining--
	if f.remaining <= 0 {
		delete(g.failures, path)
	}
	return f
}
