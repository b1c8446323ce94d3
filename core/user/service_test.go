package user_test

import (
	"context"
	"testing"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/user"
	"github.com/statbureau/datahub/testutil"
)

func TestCreate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	nu := user.NewUser{
		Email:           "  Jane@Stats.TEST ",
		FullName:        " Jane  Doe ",
		Role:            user.RoleDepartmentUser,
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	}
	if err := nu.Validate(ctx, env.Validate, env.UserSvc); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	usr, err := env.UserSvc.Create(ctx, nu)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if usr.Email != "jane@stats.test" || !usr.IsActive {
		t.Errorf("Create() = %+v", usr)
	}
	if err = usr.CheckPassword(testutil.Password); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}

	got, err := env.UserSvc.GetByEmail(ctx, "JANE@stats.test")
	if err != nil || got.ID != usr.ID {
		t.Errorf("GetByEmail() = %v, %v", got.ID, err)
	}

	dup := nu
	dup.Email = "jane@stats.test"
	err = dup.Validate(ctx, env.Validate, env.UserSvc)
	if !core.IsValidation(err) || err.Error() != user.ErrEmailExists.Error() {
		t.Errorf("Validate() on taken email error = %v", err)
	}

	if _, err = env.UserSvc.GetByID(ctx, "00000000-0000-0000-0000-000000000000"); !core.IsNotFound(err) {
		t.Errorf("GetByID() error = %v, want not found", err)
	}
}

func TestUpdate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := env.CreateUser(t, "Jane", "jane@stats.test", user.RoleDataEntryUser, nil, true)
	env.CreateUser(t, "John", "john@stats.test", user.RoleDataEntryUser, nil, true)

	inactive := false
	uu := user.UpdateUser{Role: user.RoleDepartmentUser, IsActive: &inactive}
	if err := uu.Validate(ctx, usr, env.Validate, env.UserSvc); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	updated, err := env.UserSvc.Update(ctx, usr.ID, uu)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Role != user.RoleDepartmentUser || updated.IsActive || updated.Email != usr.Email || updated.FullName != "Jane" {
		t.Errorf("Update() = %+v", updated)
	}

	uu = user.UpdateUser{Email: "JOHN@stats.test"}
	if err = uu.Validate(ctx, updated, env.Validate, env.UserSvc); !core.IsValidation(err) {
		t.Errorf("Validate() on taken email error = %v, want validation error", err)
	}

	// keeping one's own email is fine
	uu = user.UpdateUser{Email: "jane@stats.test"}
	if err = uu.Validate(ctx, updated, env.Validate, env.UserSvc); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestQuery(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	env.CreateUser(t, "Admin", "admin@stats.test", user.RoleAdmin, nil, true)
	env.CreateUser(t, "Jane Entry", "jane@stats.test", user.RoleDataEntryUser, nil, true)
	env.CreateUser(t, "John Entry", "john@stats.test", user.RoleDataEntryUser, nil, false)

	active := true
	tests := []struct {
		name   string
		filter *user.QueryFilter
		want   int
	}{
		{name: "all", filter: nil, want: 3},
		{name: "search name", filter: &user.QueryFilter{Search: "entry"}, want: 2},
		{name: "search email", filter: &user.QueryFilter{Search: "JANE@"}, want: 1},
		{name: "role", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: 1},
		{name: "active entry users", filter: &user.QueryFilter{Roles: []string{user.RoleDataEntryUser}, IsActive: &active}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := env.UserSvc.Query(ctx, tt.filter, nil)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(users) != tt.want {
				t.Errorf("Query() returned %d users, want %d", len(users), tt.want)
			}
		})
	}
}

func TestRequestPasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := env.CreateUser(t, "Jane", "jane@stats.test", user.RoleDataEntryUser, nil, true)
	env.CreateUser(t, "John", "john@stats.test", user.RoleDataEntryUser, nil, false)

	if err := env.UserSvc.RequestPasswordReset(ctx, "jane@stats.test"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	if err := env.UserSvc.RequestPasswordReset(ctx, "john@stats.test"); err != nil {
		t.Fatalf("RequestPasswordReset() on inactive user error = %v", err)
	}
	if err := env.UserSvc.RequestPasswordReset(ctx, "nobody@stats.test"); !core.IsNotFound(err) {
		t.Errorf("RequestPasswordReset() on unknown user error = %v, want not found", err)
	}
	if n := len(env.Mail.SentMessages()); n != 1 {
		t.Errorf("sent %d messages, want 1", n)
	}

	token, err := user.MakeToken(usr, env.Conf.SecretKey)
	if err != nil {
		t.Fatal(err)
	}
	newPwd := "An0ther!Secret"
	reset := user.ResetUserPassword{Token: token, UID: user.EncodeUID(usr), Password: newPwd, PasswordConfirm: newPwd}
	if err = env.UserSvc.ResetPassword(ctx, reset); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	got, _ := env.UserSvc.GetByID(ctx, usr.ID)
	if err = got.CheckPassword(newPwd); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}

	reset.UID = "garbage"
	if err = env.UserSvc.ResetPassword(ctx, reset); !core.IsValidation(err) {
		t.Errorf("ResetPassword() with bad uid error = %v, want validation error", err)
	}
}
