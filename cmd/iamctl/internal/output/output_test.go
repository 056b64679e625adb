package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

func TestNotificationPrinter(t *testing.T) {
	pterm.DisableStyling()
	t.Cleanup(pterm.EnableStyling)

	var buf bytes.Buffer
	render := NotificationPrinter(&buf)
	render(notify.Notification{Level: notify.LevelSuccess, Message: "User created successfully"})
	render(notify.Notification{Level: notify.LevelError, Message: "Failed to delete user"})

	out := buf.String()
	assert.Contains(t, out, "User created successfully")
	assert.Contains(t, out, "Failed to delete user")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestUsersTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Users(&buf, []sdk.UserRecord{
		{ID: "u1", Email: "ada@example.com", Username: "ada", FirstName: "Ada", LastName: "Lovelace", OrgID: "acme"},
		{ID: "u2", Email: "bob@example.com", Username: "bob"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Ada Lovelace")
	assert.Equal(t, []string{"u2", "bob@example.com", "bob", "-", "-"}, strings.Fields(lines[2]))
}

func TestPermissionList(t *testing.T) {
	assert.Equal(t, "users:read, roles:write", PermissionList([]sdk.Permission{
		{Resource: "users", Action: "read"},
		{Resource: "roles", Action: "write"},
	}))
	assert.Empty(t, PermissionList(nil))
}

func TestTimestamp(t *testing.T) {
	assert.Equal(t, "-", Timestamp(time.Time{}))
	assert.NotEqual(t, "-", Timestamp(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
}
