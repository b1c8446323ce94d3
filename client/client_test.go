package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
)

const baseURL = "http://api.test"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	c, err := New(baseURL, append([]Option{WithHTTPClient(hc)}, opts...)...)
	require.NoError(t, err)
	return c
}

func sessionResponder(usr user.User) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		if cookie, err := req.Cookie("session"); err != nil || cookie.Value != "token" {
			return httpmock.NewJsonResponse(http.StatusUnauthorized, map[string]string{"error": "user not authenticated"})
		}
		return httpmock.NewJsonResponse(http.StatusOK, Session{User: usr})
	}
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	c := newTestClient(t)
	usr := user.User{ID: "u1", Email: "entry@stats.test", Role: user.RoleDataEntryUser}

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/auth/login",
		func(req *http.Request) (*http.Response, error) {
			resp, err := httpmock.NewJsonResponse(http.StatusOK, Session{User: usr})
			if err == nil {
				resp.Header.Add("Set-Cookie", "session=token; Path=/; HttpOnly")
			}
			return resp, err
		})
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/auth/session", sessionResponder(usr))

	ctx := context.Background()
	assert.Equal(t, LoggedOut, c.Bootstrap(ctx))

	sess, err := c.Login(ctx, "entry@stats.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.User.ID)

	sess = c.Bootstrap(ctx)
	assert.True(t, sess.Authenticated())
	assert.Equal(t, usr.Email, sess.User.Email)
}

func TestBootstrapFailsOpen(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{
			name:      "Server Error",
			responder: httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":"Internal Server Error"}`),
		},
		{
			name:      "Invalid Body",
			responder: httpmock.NewStringResponder(http.StatusOK, `not json`),
		},
		{
			name: "Timeout",
			responder: func(req *http.Request) (*http.Response, error) {
				<-req.Context().Done()
				return nil, req.Context().Err()
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, withBootstrapTimeout(50*time.Millisecond))
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/auth/session", tc.responder)

			start := time.Now()
			sess := c.Bootstrap(context.Background())
			assert.False(t, sess.Authenticated())
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestAPIErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/auth/login",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error":"invalid email or password"}`))
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/form-submissions",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"data.males":"must be a number","data.household":"this field is required"}`))
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/schedule-forms",
		httpmock.NewStringResponder(http.StatusConflict, ``))

	_, err := c.Login(ctx, "x@stats.test", "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid email or password", apiErr.Message)
	assert.Nil(t, apiErr.Fields)

	_, err = c.Submit(ctx, submission.NewSubmission{ScheduleID: "s1", FormID: "f1"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, map[string]string{
		"data.males":     "must be a number",
		"data.household": "this field is required",
	}, apiErr.Fields)

	_, err = c.AttachForm(ctx, schedule.AttachForm{ScheduleID: "s1", FormID: "f1"})
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.EqualError(t, err, "api error 409: Conflict")
}

func TestSchedulesQuery(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/schedules",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			if q.Get("status") != "collection" || q.Get("department_id") != "d1" {
				return httpmock.NewJsonResponse(http.StatusOK, []ScheduleView{})
			}
			return httpmock.NewStringResponse(http.StatusOK, `[{
				"id": "s1", "name": "Census", "status": "collection",
				"start_date": "2025-01-01T00:00:00Z", "end_date": "2025-02-01T00:00:00Z",
				"badge": {"label": "Collection", "style": "success", "icon": "edit"},
				"days_left": 4
			}]`), nil
		})

	views, err := c.Schedules(context.Background(), schedule.QueryFilter{Status: schedule.StatusCollection, DepartmentID: "d1"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Census", views[0].Name)
	assert.Equal(t, schedule.StatusCollection, views[0].Status)
	assert.Equal(t, "Collection", views[0].Badge.Label)
	assert.Equal(t, 4, views[0].DaysLeft)

	views, err = c.Schedules(context.Background(), schedule.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestExportSubmissions(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/form-submissions/export",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewBytesResponse(http.StatusOK, []byte("PK\x03\x04"))
			resp.Header.Set("Content-Disposition", `attachment; filename="census_household.xlsx"`)
			return resp, nil
		})

	exp, err := c.ExportSubmissions(context.Background(), "s1", "f1")
	require.NoError(t, err)
	assert.Equal(t, "census_household.xlsx", exp.Filename)
	assert.Equal(t, []byte("PK\x03\x04"), exp.Content)

	info := httpmock.GetCallCountInfo()
	assert.Equal(t, 1, info["GET "+baseURL+"/api/form-submissions/export"])
}

func TestOptionsEscapesName(t *testing.T) {
	c := newTestClient(t)

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/data-banks/options/Health%20Facilities",
		httpmock.NewStringResponder(http.StatusOK, `[{"key":"north","value":"North"}]`))

	opts, err := c.Options(context.Background(), "Health Facilities")
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "north", opts[0].Key)
}
