package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/submission"
)

var errThingNotFound = core.NewNotFoundError("thing")

func TestTrapErr(t *testing.T) {
	assert.NoError(t, trapErr(nil, errThingNotFound, "getting thing"))

	err := trapErr(errors.Wrap(sql.ErrNoRows, "scan"), errThingNotFound, "getting thing")
	assert.Equal(t, errThingNotFound, err)

	err = trapErr(&pq.Error{Code: pqUniqueViolation, Constraint: "name"}, errThingNotFound, "creating thing")
	var dupErr *core.DuplicateError
	if assert.ErrorAs(t, err, &dupErr) {
		assert.Equal(t, "name", dupErr.Field)
	}

	err = trapErr(&pq.Error{Code: pqForeignKeyViolation, Constraint: "forms_department_id_fkey"}, errThingNotFound, "creating thing")
	assert.True(t, core.IsValidation(err))

	err = trapErr(errors.New("connection reset"), errThingNotFound, "creating thing")
	assert.EqualError(t, err, "creating thing: connection reset")
	assert.False(t, IsUniqueViolation(err))
}

func TestOrderBy(t *testing.T) {
	q := builder().Select("*").From(tableProfiles)

	query, _, err := orderBy(q, nil, "email ASC").ToSql()
	assert.NoError(t, err)
	assert.Equal(t, "SELECT * FROM profiles ORDER BY email ASC", query)

	query, _, err = orderBy(q, []core.DBOrdering{{Field: "role", Ascending: true}, {Field: "created_at"}}, "email ASC").ToSql()
	assert.NoError(t, err)
	assert.Equal(t, "SELECT * FROM profiles ORDER BY role ASC, created_at DESC", query)
}

func TestCountSubmissionsQuery(t *testing.T) {
	query, args, err := countSubmissionsQuery(submission.QueryFilter{ScheduleID: "sch", SubmittedBy: "usr"}).ToSql()
	assert.NoError(t, err)
	assert.Equal(t, "SELECT form_id, COUNT(*) AS n FROM form_submissions WHERE schedule_id = $1 AND submitted_by = $2 GROUP BY form_id", query)
	assert.Equal(t, []interface{}{"sch", "usr"}, args)
}
