package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
)

// table names
const (
	tableDepartments   = "departments"
	tableProfiles      = "profiles"
	tableDataBanks     = "data_banks"
	tableEntries       = "data_bank_entries"
	tableForms         = "forms"
	tableFieldGroups   = "field_groups"
	tableFormFields    = "form_fields"
	tableSchedules     = "schedules"
	tableScheduleForms = "schedule_forms"
	tableSubmissions   = "form_submissions"
)

// postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// builder returns a statement builder using postgres placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// base holds the default executor of a repository. Services may pass a transaction instead.
type base struct {
	exec core.DBExecutor
}

func (b base) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return b.exec
}

func get(ctx context.Context, exec core.DBExecutor, dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exec, dest, query, args...)
}

func selectAll(ctx context.Context, exec core.DBExecutor, dest interface{}, q squirrel.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exec, dest, query, args...)
}

func execute(ctx context.Context, exec core.DBExecutor, q squirrel.Sqlizer) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// trapErr maps "no rows" to notFound and unique violations to a DuplicateError,
// wrapping anything else with msg.
func trapErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return core.NewDuplicateError(errors.Wrap(err, msg), pqErr.Constraint)
		case pqForeignKeyViolation:
			return core.NewValidationError(errors.Wrap(err, msg), core.FieldError{Field: pqErr.Constraint, Error: "unknown reference"})
		}
	}
	return errors.Wrap(err, msg)
}

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func orderBy(q squirrel.SelectBuilder, ordering []core.DBOrdering, fallback string) squirrel.SelectBuilder {
	if len(ordering) == 0 {
		return q.OrderBy(fallback)
	}
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		clauses = append(clauses, ord.String())
	}
	return q.OrderBy(clauses...)
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
