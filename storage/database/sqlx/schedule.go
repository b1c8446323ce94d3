package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/schedule"
)

var (
	scheduleColumns = []string{
		"id", "name", "description", "start_date", "end_date", "status", "department_id",
		"created_by", "created_at", "updated_at",
	}
	scheduleFormColumns = []string{"id", "schedule_id", "form_id", "is_required", "due_date", "created_at"}
)

type (
	scheduleRow struct {
		ID           string      `db:"id"`
		Name         string      `db:"name"`
		Description  string      `db:"description"`
		StartDate    time.Time   `db:"start_date"`
		EndDate      time.Time   `db:"end_date"`
		Status       string      `db:"status"`
		DepartmentID null.String `db:"department_id"`
		CreatedBy    null.String `db:"created_by"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}

	scheduleFormRow struct {
		ID         string    `db:"id"`
		ScheduleID string    `db:"schedule_id"`
		FormID     string    `db:"form_id"`
		FormName   string    `db:"form_name"`
		IsRequired bool      `db:"is_required"`
		DueDate    null.Time `db:"due_date"`
		CreatedAt  time.Time `db:"created_at"`
	}
)

type scheduleRepository struct {
	base
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(exec core.DBExecutor) schedule.Repository {
	return &scheduleRepository{base{exec: exec}}
}

func (repo scheduleRepository) boil(sch schedule.Schedule) scheduleRow {
	return scheduleRow{
		ID:           sch.ID,
		Name:         sch.Name,
		Description:  sch.Description,
		StartDate:    sch.StartDate.UTC(),
		EndDate:      sch.EndDate.UTC(),
		Status:       string(sch.Status),
		DepartmentID: null.StringFromPtr(sch.DepartmentID),
		CreatedBy:    null.StringFromPtr(sch.CreatedBy),
		CreatedAt:    sch.CreatedAt.UTC(),
		UpdatedAt:    sch.UpdatedAt.UTC(),
	}
}

func (repo scheduleRepository) unboil(row scheduleRow) schedule.Schedule {
	return schedule.Schedule{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		StartDate:    row.StartDate.UTC(),
		EndDate:      row.EndDate.UTC(),
		Status:       schedule.Status(row.Status),
		DepartmentID: row.DepartmentID.Ptr(),
		CreatedBy:    row.CreatedBy.Ptr(),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo scheduleRepository) unboilForm(row scheduleFormRow) schedule.ScheduleForm {
	sf := schedule.ScheduleForm{
		ID:         row.ID,
		ScheduleID: row.ScheduleID,
		FormID:     row.FormID,
		FormName:   row.FormName,
		IsRequired: row.IsRequired,
		CreatedAt:  row.CreatedAt.UTC(),
	}
	if row.DueDate.Valid {
		due := row.DueDate.Time.UTC()
		sf.DueDate = &due
	}
	return sf
}

func (repo scheduleRepository) CreateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	row := repo.boil(sch)
	q := builder().Insert(tableSchedules).Columns(scheduleColumns...).Values(
		row.ID, row.Name, row.Description, row.StartDate, row.EndDate, row.Status,
		row.DepartmentID, row.CreatedBy, row.CreatedAt, row.UpdatedAt,
	)
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return schedule.Schedule{}, trapErr(err, schedule.ErrNotFound, "inserting schedule")
	}
	return repo.unboil(row), nil
}

func (repo scheduleRepository) UpdateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	row := repo.boil(sch)
	q := builder().Update(tableSchedules).SetMap(map[string]interface{}{
		"name":          row.Name,
		"description":   row.Description,
		"start_date":    row.StartDate,
		"end_date":      row.EndDate,
		"status":        row.Status,
		"department_id": row.DepartmentID,
		"updated_at":    row.UpdatedAt,
	}).Where(squirrel.Eq{"id": row.ID})

	n, err := execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return schedule.Schedule{}, trapErr(err, schedule.ErrNotFound, "updating schedule")
	}
	if n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	return repo.unboil(row), nil
}

func (repo scheduleRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	q := builder().Select(scheduleColumns...).From(tableSchedules).Where(squirrel.Eq{"id": id})

	var row scheduleRow
	if err := get(ctx, repo.getExec(exec), &row, q); err != nil {
		return schedule.Schedule{}, trapErr(err, schedule.ErrNotFound, "finding schedule")
	}
	return repo.unboil(row), nil
}

func (repo scheduleRepository) QuerySchedules(ctx context.Context, filter schedule.QueryFilter, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	q := builder().Select(scheduleColumns...).From(tableSchedules).OrderBy("start_date DESC")
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.DepartmentID != "" {
		q = q.Where(squirrel.Eq{"department_id": filter.DepartmentID})
	}

	var rows []scheduleRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, repo.unboil(row))
	}
	return schedules, nil
}

// Attached forms

func (repo scheduleRepository) selectForms() squirrel.SelectBuilder {
	return builder().Select(
		"sf.id", "sf.schedule_id", "sf.form_id", "f.name AS form_name", "sf.is_required", "sf.due_date", "sf.created_at",
	).From(tableScheduleForms + " sf").Join(tableForms + " f ON f.id = sf.form_id")
}

func (repo scheduleRepository) getForm(ctx context.Context, exec core.DBExecutor, id string) (schedule.ScheduleForm, error) {
	var row scheduleFormRow
	if err := get(ctx, exec, &row, repo.selectForms().Where(squirrel.Eq{"sf.id": id})); err != nil {
		return schedule.ScheduleForm{}, trapErr(err, schedule.ErrScheduleFormNotFound, "finding schedule form")
	}
	return repo.unboilForm(row), nil
}

func (repo scheduleRepository) CreateScheduleForm(ctx context.Context, sf schedule.ScheduleForm, exec ...core.DBExecutor) (schedule.ScheduleForm, error) {
	e := repo.getExec(exec)
	q := builder().Insert(tableScheduleForms).Columns(scheduleFormColumns...).Values(
		sf.ID, sf.ScheduleID, sf.FormID, sf.IsRequired, null.TimeFromPtr(sf.DueDate), sf.CreatedAt.UTC(),
	)
	if _, err := execute(ctx, e, q); err != nil {
		err = trapErr(err, schedule.ErrScheduleFormNotFound, "attaching form")
		if core.IsDuplicate(err) {
			return schedule.ScheduleForm{}, core.NewDuplicateError(schedule.ErrDuplicateAttachment, "form_id")
		}
		return schedule.ScheduleForm{}, err
	}
	return repo.getForm(ctx, e, sf.ID)
}

func (repo scheduleRepository) UpdateScheduleForm(ctx context.Context, sf schedule.ScheduleForm, exec ...core.DBExecutor) (schedule.ScheduleForm, error) {
	e := repo.getExec(exec)
	q := builder().Update(tableScheduleForms).SetMap(map[string]interface{}{
		"is_required": sf.IsRequired,
		"due_date":    null.TimeFromPtr(sf.DueDate),
	}).Where(squirrel.Eq{"id": sf.ID})

	n, err := execute(ctx, e, q)
	if err != nil {
		return schedule.ScheduleForm{}, errors.Wrap(err, "updating schedule form")
	}
	if n == 0 {
		return schedule.ScheduleForm{}, schedule.ErrScheduleFormNotFound
	}
	return repo.getForm(ctx, e, sf.ID)
}

func (repo scheduleRepository) DeleteScheduleForm(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execute(ctx, repo.getExec(exec), builder().Delete(tableScheduleForms).Where(squirrel.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "detaching form")
	}
	if n == 0 {
		return schedule.ErrScheduleFormNotFound
	}
	return nil
}

func (repo scheduleRepository) GetScheduleForm(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.ScheduleForm, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schedule.ScheduleForm{}, schedule.ErrScheduleFormNotFound
	}
	return repo.getForm(ctx, repo.getExec(exec), id)
}

func (repo scheduleRepository) QueryScheduleForms(ctx context.Context, scheduleID string, exec ...core.DBExecutor) ([]schedule.ScheduleForm, error) {
	q := repo.selectForms().Where(squirrel.Eq{"sf.schedule_id": scheduleID}).OrderBy("f.name ASC")

	var rows []scheduleFormRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying schedule forms")
	}
	sfs := make([]schedule.ScheduleForm, 0, len(rows))
	for _, row := range rows {
		sfs = append(sfs, repo.unboilForm(row))
	}
	return sfs, nil
}
