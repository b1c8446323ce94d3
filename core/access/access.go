// Package access maps user roles to the menu entries and routes they may use.
package access

import (
	"strings"

	"github.com/statbureau/datahub/core/user"
)

type MenuItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Path  string `json:"path"`
}

var (
	dashboard     = MenuItem{Key: "dashboard", Label: "Dashboard", Path: "/"}
	schedules     = MenuItem{Key: "schedules", Label: "Schedules", Path: "/schedules"}
	dataEntry     = MenuItem{Key: "data_entry", Label: "Data Entry", Path: "/data-entry"}
	submissions   = MenuItem{Key: "submissions", Label: "Submissions", Path: "/submissions"}
	reports       = MenuItem{Key: "reports", Label: "Reports", Path: "/reports"}
	sdg           = MenuItem{Key: "sdg", Label: "SDG Indicators", Path: "/sdg"}
	forms         = MenuItem{Key: "forms", Label: "Forms", Path: "/forms"}
	dataBanks     = MenuItem{Key: "data_banks", Label: "Data Banks", Path: "/data-banks"}
	departments   = MenuItem{Key: "departments", Label: "Departments", Path: "/departments"}
	users         = MenuItem{Key: "users", Label: "Users", Path: "/users"}
	scheduleAdmin = MenuItem{Key: "schedule_admin", Label: "Manage Schedules", Path: "/admin/schedules"}
)

var menus = map[string][]MenuItem{
	user.RoleAdmin: {
		dashboard, schedules, dataEntry, submissions, reports, sdg,
		scheduleAdmin, forms, dataBanks, departments, users,
	},
	user.RoleDepartmentUser: {dashboard, schedules, dataEntry, submissions, reports, sdg},
	user.RoleDataEntryUser:  {dashboard, schedules, dataEntry, submissions},
}

// Menu returns the menu of role. Unknown roles get an empty menu.
func Menu(role string) []MenuItem {
	items := menus[role]
	out := make([]MenuItem, len(items))
	copy(out, items)
	return out
}

// Allowed reports whether role may open path: path must be one of its menu entries
// or lie underneath one.
func Allowed(role, path string) bool {
	path = "/" + strings.Trim(path, "/")
	for _, item := range menus[role] {
		if item.Path == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == item.Path || strings.HasPrefix(path, item.Path+"/") {
			return true
		}
	}
	return false
}
