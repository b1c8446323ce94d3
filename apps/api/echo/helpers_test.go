package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/statbureau/datahub/core/user"
	"github.com/statbureau/datahub/testutil"
)

type testApp struct {
	env       *testutil.Env
	srv       *Server
	admin     user.User
	deptUser  user.User
	entryUser user.User
}

func newTestApp(t *testing.T) *testApp {
	env := testutil.NewEnv(t)
	srv := NewServer(ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		DisableReqLogs: true,
		UserSvc:        env.UserSvc,
		DepartmentSvc:  env.DepartmentSvc,
		RefdataSvc:     env.RefdataSvc,
		FormSvc:        env.FormSvc,
		ScheduleSvc:    env.ScheduleSvc,
		SubmissionSvc:  env.SubmissionSvc,
		ReportSvc:      env.ReportSvc,
	})
	return &testApp{
		env:       env,
		srv:       srv,
		admin:     env.CreateUser(t, "Ada Admin", "admin@stats.test", user.RoleAdmin, nil, true),
		deptUser:  env.CreateUser(t, "Dan Department", "dept@stats.test", user.RoleDepartmentUser, nil, true),
		entryUser: env.CreateUser(t, "Eve Entry", "entry@stats.test", user.RoleDataEntryUser, nil, true),
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	usr      *user.User
	wantCode int
	wantData []byte
}

// sessionCookie returns a valid session cookie of usr.
func (app *testApp) sessionCookie(t *testing.T, usr user.User) *http.Cookie {
	token, err := GenerateToken(app.env.Conf, usr)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (app *testApp) do(t *testing.T, method, path string, usr *user.User, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if usr != nil {
		req.AddCookie(app.sessionCookie(t, *usr))
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.usr, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func (app *testApp) doWithCookie(t *testing.T, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}
