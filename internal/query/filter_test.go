package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraconstructs/iamctl/pkg/sdk"
)

func TestFilter_Users(t *testing.T) {
	users := []sdk.UserRecord{
		{ID: "u1", Email: "alice@acme.io", Username: "alice", OrgID: "acme", UserTypeID: 1},
		{ID: "u2", Email: "bob@globex.io", Username: "bob", OrgID: "globex", UserTypeID: 2},
		{ID: "u3", Email: "admin@acme.io", Username: "admin", OrgID: "acme", UserTypeID: 2},
	}

	m, err := NewMatcher(4)
	require.NoError(t, err)

	tests := []struct {
		name    string
		expr    string
		wantIDs []string
	}{
		{name: "empty matches all", expr: "", wantIDs: []string{"u1", "u2", "u3"}},
		{name: "equality", expr: `org_id == "acme"`, wantIDs: []string{"u1", "u3"}},
		{name: "conjunction", expr: `org_id == "acme" and user_type_id == 2`, wantIDs: []string{"u3"}},
		{name: "regex", expr: `email matches "@globex"`, wantIDs: []string{"u2"}},
		{name: "no match", expr: `username == "carol"`, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(m, users, tt.expr)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, u := range got {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilter_InvalidExpression(t *testing.T) {
	m, err := NewMatcher(0)
	require.NoError(t, err)

	_, err = Filter(m, []sdk.Role{{ID: "r1"}}, `name ==`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestMatcher_CachesCompiledExpressions(t *testing.T) {
	m, err := NewMatcher(2)
	require.NoError(t, err)

	first, err := m.Compile(`name == "admin"`)
	require.NoError(t, err)
	second, err := m.Compile(`  name == "admin"  `)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = m.Compile(`is_system == true`)
	require.NoError(t, err)
	_, err = m.Compile(`user_count == 1`)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}
