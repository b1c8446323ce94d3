package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/statbureau/datahub/core/user"
)

func menuKeys(items []MenuItem) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}
	return keys
}

func TestMenu(t *testing.T) {
	assert.Equal(t,
		[]string{"dashboard", "schedules", "data_entry", "submissions"},
		menuKeys(Menu(user.RoleDataEntryUser)),
	)
	assert.Contains(t, menuKeys(Menu(user.RoleDepartmentUser)), "reports")
	assert.NotContains(t, menuKeys(Menu(user.RoleDepartmentUser)), "forms")
	assert.Contains(t, menuKeys(Menu(user.RoleAdmin)), "users")
	assert.Empty(t, Menu("guest"))

	// callers cannot alter the table
	m := Menu(user.RoleAdmin)
	m[0].Label = "changed"
	assert.Equal(t, "Dashboard", Menu(user.RoleAdmin)[0].Label)
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		role string
		path string
		want bool
	}{
		{role: user.RoleAdmin, path: "/users", want: true},
		{role: user.RoleAdmin, path: "/forms/123/fields", want: true},
		{role: user.RoleDataEntryUser, path: "/", want: true},
		{role: user.RoleDataEntryUser, path: "/data-entry/abc", want: true},
		{role: user.RoleDataEntryUser, path: "/forms", want: false},
		{role: user.RoleDataEntryUser, path: "/reports", want: false},
		{role: user.RoleDataEntryUser, path: "/data-entryx", want: false},
		{role: user.RoleDepartmentUser, path: "/reports/", want: true},
		{role: user.RoleDepartmentUser, path: "/users", want: false},
		{role: "guest", path: "/", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.role+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.path))
		})
	}
}
