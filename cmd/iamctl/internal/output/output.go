// Package output renders store state and notifications for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pterm/pterm"
	"github.com/terraconstructs/iamctl/pkg/notify"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

// NotificationPrinter returns a bus subscriber that prints each notification
// with the pterm prefix printer matching its level.
func NotificationPrinter(w io.Writer) func(notify.Notification) {
	return func(n notify.Notification) {
		printer := pterm.Info
		switch n.Level {
		case notify.LevelSuccess:
			printer = pterm.Success
		case notify.LevelWarning:
			printer = pterm.Warning
		case notify.LevelError:
			printer = pterm.Error
		}
		printer.WithWriter(w).Println(n.Message)
	}
}

// Table is a tabwriter preconfigured the way every list command prints.
type Table struct {
	w *tabwriter.Writer
}

func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{w: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
	fmt.Fprintln(t.w, strings.Join(headers, "\t"))
	return t
}

// Row writes one line; empty cells print as "-".
func (t *Table) Row(cells ...string) {
	for i, c := range cells {
		if c == "" {
			cells[i] = "-"
		}
	}
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *Table) Flush() error {
	return t.w.Flush()
}

// Users prints users as a table.
func Users(w io.Writer, users []sdk.UserRecord) error {
	t := NewTable(w, "ID", "EMAIL", "USERNAME", "NAME", "ORG")
	for _, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		t.Row(u.ID, u.Email, u.Username, name, u.OrgID)
	}
	return t.Flush()
}

// Roles prints roles as a table.
func Roles(w io.Writer, roles []sdk.Role) error {
	t := NewTable(w, "ID", "NAME", "TYPE", "USERS", "PERMISSIONS")
	for _, r := range roles {
		t.Row(r.ID, r.Name, r.RoleType, fmt.Sprint(r.UserCount), PermissionList(r.Permissions))
	}
	return t.Flush()
}

// Permissions prints permissions as a table.
func Permissions(w io.Writer, perms []sdk.Permission) error {
	t := NewTable(w, "ID", "NAME", "RESOURCE", "ACTION", "DESCRIPTION")
	for _, p := range perms {
		t.Row(p.ID, p.Name, p.Resource, p.Action, p.Description)
	}
	return t.Flush()
}

// PermissionList renders permissions as "resource:action" pairs.
func PermissionList(perms []sdk.Permission) string {
	pairs := make([]string, 0, len(perms))
	for _, p := range perms {
		pairs = append(pairs, p.Resource+":"+p.Action)
	}
	return strings.Join(pairs, ", ")
}

// Timestamp formats t for humans, "-" for the zero time.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC1123)
}
