package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/refdata"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/user"
	"github.com/statbureau/datahub/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	return &commandLine{
		conf:       env.Conf,
		validate:   env.Validate,
		translator: env.Translator,
		usrSvc:     env.UserSvc,
		refdataSvc: env.RefdataSvc,
		schedSvc:   env.ScheduleSvc,
		mailSvc:    env.Mail,
		out:        out,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	orig := runMigrationsFunc
	defer func() { runMigrationsFunc = orig }()
	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, out := setup(t)
	dept := env.CreateDepartment(t, "Statistics")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "a@stats.test", "-name", "A"}, wantErr: errHelp},
		{
			name:       "weak password",
			args:       []string{"adduser", "-email", "a@stats.test", "-name", "A"},
			extra:      "password",
			wantErrStr: "password: password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character",
		},
		{
			name:       "invalid role",
			args:       []string{"adduser", "-email", "a@stats.test", "-name", "A", "-role", "boss"},
			extra:      testutil.Password,
			wantErrStr: "role: invalid role",
		},
		{name: "admin", args: []string{"adduser", "-email", "Root@Stats.test", "-name", "Root"}, extra: testutil.Password},
		{
			name:  "department user",
			args:  []string{"adduser", "-email", "dept@stats.test", "-name", "Dept", "-role", user.RoleDepartmentUser, "-department", dept.ID},
			extra: testutil.Password,
		},
		{
			name:       "email taken",
			args:       []string{"adduser", "-email", "root@stats.test", "-name", "Root"},
			extra:      testutil.Password,
			wantErrStr: "a user with this email already exists",
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(t, pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	usr, err := env.UserSvc.GetByEmail(context.Background(), "root@stats.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.Password))
	assert.Contains(t, out.String(), "created admin user root@stats.test")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	usr := env.CreateUser(t, "User", "user@stats.test", user.RoleDataEntryUser, nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@stats.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@stats.test"}, extra: "N3w!Secret#99", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "USER@stats.test"}, extra: "N3w!Secret#99"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		mockPassword(t, pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshed, err := env.UserSvc.GetByID(context.Background(), usr.ID)
				require.NoError(t, err)
				if bytes.Equal(refreshed.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
				assert.NoError(t, refreshed.CheckPassword(pwd))
			}
		})
	}
}

func Test_commandLine_importEntries(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()
	bank, err := env.RefdataSvc.CreateSet(ctx, refdata.NewDataBank{Name: "districts"}, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "districts.txt")
	require.NoError(t, os.WriteFile(path, []byte("Gasabo\nKicukiro, Nyarugenge\ngasabo\n"), 0o600))

	tests := []cliTest{
		{name: "no args", args: []string{"importentries"}, wantErr: errHelp},
		{name: "unknown bank", args: []string{"importentries", "-bank", "nope", "-file", path}, wantErr: errBankNotFound},
		{name: "import", args: []string{"importentries", "-bank", "districts", "-file", path}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	entries, err := env.RefdataSvc.ListEntries(ctx, bank.ID, refdata.EntryFilter{Order: refdata.OrderByKey})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "gasabo", entries[0].Key)
	assert.Contains(t, out.String(), "imported 3 entries into districts")
	assert.Contains(t, out.String(), `skipped "gasabo"`)
}

func Test_commandLine_notify(t *testing.T) {
	cli, env, out := setup(t)
	env.CreateUser(t, "Ada Admin", "ada@stats.test", user.RoleAdmin, nil, true)
	env.CreateUser(t, "Old Admin", "old@stats.test", user.RoleAdmin, nil, false)
	env.CreateUser(t, "Eve Entry", "eve@stats.test", user.RoleDataEntryUser, nil, true)

	t.Run("nothing to report", func(t *testing.T) {
		require.NoError(t, cli.run([]string{"admin", "notify"}))
		assert.Empty(t, env.Mail.SentMessages())
		assert.Contains(t, out.String(), "no alerts to send")
	})

	t.Run("deadline approaching", func(t *testing.T) {
		today := core.Today().Time
		env.CreateSchedule(t, "Labour survey", today.AddDate(0, 0, -20), today.AddDate(0, 0, 2), schedule.StatusCollection)

		require.NoError(t, cli.run([]string{"admin", "notify"}))
		sent := env.Mail.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "ada@stats.test", sent[0].To[0].Address)
		assert.True(t, strings.Contains(sent[0].TextContent, "Labour survey ends in 2 days"), sent[0].TextContent)
	})
}
