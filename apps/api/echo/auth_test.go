package echoapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core/access"
	"github.com/statbureau/datahub/core/user"
	"github.com/statbureau/datahub/testutil"
)

func TestHome(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to DataHub API!", rec.Body.String())
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	inactive := app.env.CreateUser(t, "Ina Active", "inactive@stats.test", user.RoleDataEntryUser, nil, false)

	app.run(t, []httpTest{
		{
			name:     "empty payload",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email":"this field is required","password":"this field is required"}`),
		},
		{
			name:     "unknown email",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshallObj(t, LoginRequest{Email: "nobody@stats.test", Password: testutil.Password}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshallObj(t, LoginRequest{Email: app.admin.Email, Password: "Wr0ng!Pass"}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name:     "deactivated account",
			method:   http.MethodPost,
			path:     "/api/auth/login",
			body:     marshallObj(t, LoginRequest{Email: inactive.Email, Password: testutil.Password}),
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	t.Run("success", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/auth/login", nil,
			marshallObj(t, LoginRequest{Email: "  ENTRY@stats.test ", Password: testutil.Password}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got SessionResponse
		unmarshall(t, rec, &got)
		assert.Equal(t, app.entryUser.ID, got.User.ID)
		assert.Equal(t, access.Menu(user.RoleDataEntryUser), got.Menu)
		assert.False(t, got.User.LastLogin.IsZero())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.NotEmpty(t, cookies[0].Value)
	})
}

func TestSession(t *testing.T) {
	app := newTestApp(t)

	t.Run("anonymous", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/auth/session", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		cookie := app.sessionCookie(t, app.admin)
		cookie.Value = strings.Replace(cookie.Value, ".", ".x", 1)
		rec := app.doWithCookie(t, http.MethodGet, "/api/auth/session", cookie)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("deactivated since login", func(t *testing.T) {
		usr := app.env.CreateUser(t, "Gone Soon", "gone@stats.test", user.RoleDataEntryUser, nil, true)
		cookie := app.sessionCookie(t, usr)
		usr.IsActive = false
		_, err := app.env.UserRepo.UpdateUser(context.Background(), usr)
		require.NoError(t, err)

		rec := app.doWithCookie(t, http.MethodGet, "/api/auth/session", cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("authenticated", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/auth/session", &app.deptUser)
		require.Equal(t, http.StatusOK, rec.Code)

		var got SessionResponse
		unmarshall(t, rec, &got)
		assert.Equal(t, app.deptUser.Email, got.User.Email)
		assert.Equal(t, access.Menu(user.RoleDepartmentUser), got.Menu)
		// sliding session
		assert.NotEmpty(t, rec.Result().Cookies())
	})
}

func TestLogout(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodPost, "/api/auth/logout", &app.admin)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestTempSignup(t *testing.T) {
	app := newTestApp(t)
	payload := marshallObj(t, user.TempSignup{
		Email:           "new@stats.test",
		FullName:        "New Comer",
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	})

	t.Run("disabled", func(t *testing.T) {
		app.env.Conf.AllowTempSignup = false
		defer func() { app.env.Conf.AllowTempSignup = true }()
		rec := app.do(t, http.MethodPost, "/api/auth/temp-signup", nil, payload)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/auth/temp-signup", nil, payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got SessionResponse
		unmarshall(t, rec, &got)
		assert.Equal(t, user.RoleDataEntryUser, got.User.Role)
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("email taken", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/auth/temp-signup", nil, payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"email":"a user with this email already exists"}`, rec.Body.String())
	})
}

func TestPasswordReset(t *testing.T) {
	app := newTestApp(t)
	before := len(app.env.Mail.SentMessages())

	for _, email := range []string{"nobody@stats.test", app.admin.Email} {
		rec := app.do(t, http.MethodPost, "/api/auth/password-reset", nil,
			marshallObj(t, PasswordResetRequest{Email: email}))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	sent := app.env.Mail.SentMessages()
	require.Len(t, sent, before+1)
	assert.Equal(t, app.admin.Email, sent[len(sent)-1].To[0].Address)

	t.Run("confirm with bad token", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/auth/password-reset-confirm", nil, marshallObj(t, user.ResetUserPassword{
			Token:           "bad-token",
			UID:             user.EncodeUID(app.admin),
			Password:        "N3w!Secret#99",
			PasswordConfirm: "N3w!Secret#99",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("confirm", func(t *testing.T) {
		token, err := user.MakeToken(app.admin, app.env.Conf.SecretKey)
		require.NoError(t, err)
		rec := app.do(t, http.MethodPost, "/api/auth/password-reset-confirm", nil, marshallObj(t, user.ResetUserPassword{
			Token:           token,
			UID:             user.EncodeUID(app.admin),
			Password:        "N3w!Secret#99",
			PasswordConfirm: "N3w!Secret#99",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		usr, err := app.env.UserSvc.GetByID(context.Background(), app.admin.ID)
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("N3w!Secret#99"))
	})
}

func TestUserAPI(t *testing.T) {
	app := newTestApp(t)

	app.run(t, []httpTest{
		{name: "anonymous", method: http.MethodGet, path: "/api/users", wantCode: http.StatusUnauthorized},
		{name: "data entry user", method: http.MethodGet, path: "/api/users", usr: &app.entryUser, wantCode: http.StatusForbidden},
		{name: "department user", method: http.MethodGet, path: "/api/users", usr: &app.deptUser, wantCode: http.StatusForbidden},
		{
			name:     "roles",
			method:   http.MethodGet,
			path:     "/api/users/roles",
			usr:      &app.admin,
			wantCode: http.StatusOK,
			wantData: marshallObj(t, user.Roles),
		},
		{
			name:     "invalid role",
			method:   http.MethodPost,
			path:     "/api/users",
			usr:      &app.admin,
			body:     []byte(`{"email":"x@stats.test","full_name":"X","role":"boss","password":"Str0ng!Pass#42","password_confirm":"Str0ng!Pass#42"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"role":"invalid role"}`),
		},
		{
			name:     "admin cannot demote self",
			method:   http.MethodPut,
			path:     "/api/users/" + app.admin.ID,
			usr:      &app.admin,
			body:     []byte(`{"role":"data_entry_user"}`),
			wantCode: http.StatusForbidden,
		},
		{name: "unknown user", method: http.MethodGet, path: "/api/users/4b9e9d4c-7c51-4d5b-9a3a-1c1a3e2b0f00", usr: &app.admin, wantCode: http.StatusNotFound},
	})

	t.Run("create and search", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/users", &app.admin, marshallObj(t, user.NewUser{
			Email:           "clerk@stats.test",
			FullName:        "Census Clerk",
			Role:            user.RoleDataEntryUser,
			Password:        testutil.Password,
			PasswordConfirm: testutil.Password,
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodGet, "/api/users?search=clerk", &app.admin)
		require.Equal(t, http.StatusOK, rec.Code)
		var got []user.User
		unmarshall(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "Census Clerk", got[0].FullName)
	})

	t.Run("deactivate other user", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/api/users/"+app.entryUser.ID, &app.admin, []byte(`{"is_active":false}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshall(t, rec, &got)
		assert.False(t, got.IsActive)
	})
}
