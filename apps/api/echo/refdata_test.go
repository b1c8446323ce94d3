package echoapi

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/core/refdata"
)

func TestDepartmentAPI(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/departments", &app.admin, []byte(`{"name":" Health ","description":"Ministry of Health"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dept department.Department
	unmarshall(t, rec, &dept)
	assert.Equal(t, "Health", dept.Name)

	app.run(t, []httpTest{
		{
			name:     "duplicate name",
			method:   http.MethodPost,
			path:     "/api/departments",
			usr:      &app.admin,
			body:     []byte(`{"name":"health"}`),
			wantCode: http.StatusConflict,
		},
		{
			name:     "blank name",
			method:   http.MethodPost,
			path:     "/api/departments",
			usr:      &app.admin,
			body:     []byte(`{"name":"   "}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name":"this field is required"}`),
		},
		{
			name:     "not admin",
			method:   http.MethodPost,
			path:     "/api/departments",
			usr:      &app.deptUser,
			body:     []byte(`{"name":"Finance"}`),
			wantCode: http.StatusForbidden,
		},
		{name: "read", method: http.MethodGet, path: "/api/departments/" + dept.ID, usr: &app.entryUser, wantCode: http.StatusOK, wantData: marshallObj(t, dept)},
		{name: "deactivate", method: http.MethodDelete, path: "/api/departments/" + dept.ID, usr: &app.admin, wantCode: http.StatusNoContent},
		{name: "list hides inactive", method: http.MethodGet, path: "/api/departments", usr: &app.admin, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})
}

func TestRefdataAPI(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/data-banks", &app.admin, []byte(`{"name":"regions","description":"Administrative regions"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bank refdata.DataBank
	unmarshall(t, rec, &bank)
	assert.Equal(t, app.admin.ID, *bank.CreatedBy)

	t.Run("bulk import", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/data-banks/"+bank.ID+"/entries/bulk", &app.admin,
			marshallObj(t, refdata.BulkEntries{Raw: "North, South\nEast\nnorth\n!!!"}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res refdata.BulkResult
		unmarshall(t, rec, &res)
		assert.Len(t, res.Inserted, 3)
		assert.Equal(t, []string{"north", "!!!"}, res.Skipped)
		assert.NotEmpty(t, res.Warning)

		metrics := app.do(t, http.MethodGet, "/metrics", nil)
		assert.Contains(t, metrics.Body.String(), "datahub_refdata_entries_imported_total 3")
		assert.Contains(t, metrics.Body.String(), "datahub_refdata_entries_skipped_total 2")
	})

	t.Run("single entry", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/data-banks/"+bank.ID+"/entries", &app.admin, []byte(`{"key":"west","value":"West"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodPost, "/api/data-banks/"+bank.ID+"/entries", &app.admin, []byte(`{"key":"west","value":"West again"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = app.do(t, http.MethodPost, "/api/data-banks/"+bank.ID+"/entries", &app.admin, []byte(`{"key":"West Side","value":"West"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"key"`)
	})

	t.Run("options ordered by value", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/data-banks/options/regions", &app.entryUser)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t,
			`[{"key":"east","value":"East"},{"key":"north","value":"North"},{"key":"south","value":"South"},{"key":"west","value":"West"}]`,
			rec.Body.String())
	})

	t.Run("unknown options are empty", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/data-banks/options/nope", &app.entryUser)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("entries by key", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/api/data-banks/"+bank.ID+"/entries?order=key", &app.deptUser)
		require.Equal(t, http.StatusOK, rec.Code)
		var entries []refdata.Entry
		unmarshall(t, rec, &entries)
		keys := make([]string, 0, len(entries))
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		assert.Equal(t, "east,north,south,west", strings.Join(keys, ","))
	})

	t.Run("data entry users cannot write", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/api/data-banks/"+bank.ID+"/entries", &app.entryUser, []byte(`{"key":"x","value":"X"}`))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
