package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
)

var (
	formColumns = []string{
		"id", "name", "description", "department_id", "created_by", "version", "is_active", "created_at", "updated_at",
	}
	groupColumns = []string{"id", "form_id", "name", "label", "group_order"}
	fieldColumns = []string{
		"id", "form_id", "field_group_id", "parent_field_id", "sub_header_name", "field_key", "field_name",
		"field_label", "field_type", "is_required", "is_primary_column", "is_secondary_column",
		"reference_data_name", "placeholder_text", "aggregate_fields", "has_sub_headers", "sub_headers",
		"field_order", "depth",
	}
)

type (
	formRow struct {
		ID           string      `db:"id"`
		Name         string      `db:"name"`
		Description  string      `db:"description"`
		DepartmentID string      `db:"department_id"`
		CreatedBy    null.String `db:"created_by"`
		Version      int         `db:"version"`
		IsActive     bool        `db:"is_active"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}

	groupRow struct {
		ID     string `db:"id"`
		FormID string `db:"form_id"`
		Name   string `db:"name"`
		Label  string `db:"label"`
		Order  int    `db:"group_order"`
	}

	fieldRow struct {
		ID                string         `db:"id"`
		FormID            string         `db:"form_id"`
		GroupID           null.String    `db:"field_group_id"`
		ParentID          null.String    `db:"parent_field_id"`
		SubHeaderName     null.String    `db:"sub_header_name"`
		Key               string         `db:"field_key"`
		Name              string         `db:"field_name"`
		Label             string         `db:"field_label"`
		Type              string         `db:"field_type"`
		Required          bool           `db:"is_required"`
		Primary           bool           `db:"is_primary_column"`
		Secondary         bool           `db:"is_secondary_column"`
		ReferenceDataName null.String    `db:"reference_data_name"`
		Placeholder       null.String    `db:"placeholder_text"`
		AggregateFields   pq.StringArray `db:"aggregate_fields"`
		HasSubHeaders     bool           `db:"has_sub_headers"`
		SubHeaders        types.JSONText `db:"sub_headers"`
		Order             int            `db:"field_order"`
		Depth             int            `db:"depth"`
	}
)

type formRepository struct {
	base
}

var _ form.Repository = (*formRepository)(nil)

func NewFormRepository(exec core.DBExecutor) form.Repository {
	return &formRepository{base{exec: exec}}
}

func (repo formRepository) unboil(row formRow) form.Form {
	return form.Form{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		DepartmentID: row.DepartmentID,
		CreatedBy:    row.CreatedBy.Ptr(),
		Version:      row.Version,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo formRepository) boilField(r form.FieldRow) (fieldRow, error) {
	subHeaders := r.SubHeaders
	if subHeaders == nil {
		subHeaders = []form.SubHeaderMeta{}
	}
	shJSON, err := json.Marshal(subHeaders)
	if err != nil {
		return fieldRow{}, errors.Wrap(err, "encoding sub-headers")
	}
	aggs := r.AggregateFields
	if aggs == nil {
		aggs = []string{}
	}
	return fieldRow{
		ID:                r.ID,
		FormID:            r.FormID,
		GroupID:           null.StringFromPtr(r.GroupID),
		ParentID:          null.StringFromPtr(r.ParentID),
		SubHeaderName:     null.StringFromPtr(r.SubHeaderName),
		Key:               r.Key,
		Name:              r.Name,
		Label:             r.Label,
		Type:              string(r.Type),
		Required:          r.Required,
		Primary:           r.Primary,
		Secondary:         r.Secondary,
		ReferenceDataName: null.StringFromPtr(r.ReferenceDataName),
		Placeholder:       null.StringFromPtr(r.Placeholder),
		AggregateFields:   aggs,
		HasSubHeaders:     len(subHeaders) > 0,
		SubHeaders:        types.JSONText(shJSON),
		Order:             r.Order,
		Depth:             r.Depth,
	}, nil
}

func (repo formRepository) unboilField(row fieldRow) (form.FieldRow, error) {
	var subHeaders []form.SubHeaderMeta
	if err := row.SubHeaders.Unmarshal(&subHeaders); err != nil {
		return form.FieldRow{}, errors.Wrapf(err, "decoding sub-headers of field %s", row.Key)
	}
	return form.FieldRow{
		ID:                row.ID,
		FormID:            row.FormID,
		GroupID:           row.GroupID.Ptr(),
		ParentID:          row.ParentID.Ptr(),
		SubHeaderName:     row.SubHeaderName.Ptr(),
		Key:               row.Key,
		Name:              row.Name,
		Label:             row.Label,
		Type:              form.FieldType(row.Type),
		Required:          row.Required,
		Primary:           row.Primary,
		Secondary:         row.Secondary,
		ReferenceDataName: row.ReferenceDataName.Ptr(),
		Placeholder:       row.Placeholder.Ptr(),
		AggregateFields:   []string(row.AggregateFields),
		SubHeaders:        subHeaders,
		Order:             row.Order,
		Depth:             row.Depth,
	}, nil
}

func (repo formRepository) CreateForm(ctx context.Context, f form.Form, exec ...core.DBExecutor) (form.Form, error) {
	q := builder().Insert(tableForms).Columns(formColumns...).Values(
		f.ID, f.Name, f.Description, f.DepartmentID, null.StringFromPtr(f.CreatedBy),
		f.Version, f.IsActive, f.CreatedAt.UTC(), f.UpdatedAt.UTC(),
	)
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return form.Form{}, trapErr(err, form.ErrNotFound, "inserting form")
	}
	return f, nil
}

// UpdateForm leaves the version alone; it only moves through BumpVersion.
func (repo formRepository) UpdateForm(ctx context.Context, f form.Form, exec ...core.DBExecutor) (form.Form, error) {
	q := builder().Update(tableForms).SetMap(map[string]interface{}{
		"name":          f.Name,
		"description":   f.Description,
		"department_id": f.DepartmentID,
		"is_active":     f.IsActive,
		"updated_at":    f.UpdatedAt.UTC(),
	}).Where(squirrel.Eq{"id": f.ID}).Suffix("RETURNING version")

	query, args, err := q.ToSql()
	if err != nil {
		return form.Form{}, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, repo.getExec(exec), &f.Version, query, args...); err != nil {
		return form.Form{}, trapErr(err, form.ErrNotFound, "updating form")
	}
	return f, nil
}

func (repo formRepository) GetForm(ctx context.Context, id string, exec ...core.DBExecutor) (form.Form, error) {
	if _, err := uuid.Parse(id); err != nil {
		return form.Form{}, form.ErrNotFound
	}
	q := builder().Select(formColumns...).From(tableForms).Where(squirrel.Eq{"id": id})

	var row formRow
	if err := get(ctx, repo.getExec(exec), &row, q); err != nil {
		return form.Form{}, trapErr(err, form.ErrNotFound, "finding form")
	}
	return repo.unboil(row), nil
}

func (repo formRepository) QueryForms(ctx context.Context, filter form.QueryFilter, exec ...core.DBExecutor) ([]form.Form, error) {
	q := builder().Select(formColumns...).From(tableForms).OrderBy("name ASC")
	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.DepartmentID != "" {
		q = q.Where(squirrel.Eq{"department_id": filter.DepartmentID})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	var rows []formRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying forms")
	}
	forms := make([]form.Form, 0, len(rows))
	for _, row := range rows {
		forms = append(forms, repo.unboil(row))
	}
	return forms, nil
}

func (repo formRepository) BumpVersion(ctx context.Context, formID string, expected int, exec ...core.DBExecutor) (int, error) {
	e := repo.getExec(exec)
	q := builder().Update(tableForms).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", core.Now()).
		Where(squirrel.Eq{"id": formID, "version": expected}).
		Suffix("RETURNING version")

	var version int
	err := get(ctx, e, &version, q)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrap(err, "bumping form version")
	}
	// nothing updated: tell a missing form from a stale version
	if _, err = repo.GetForm(ctx, formID, e); err != nil {
		return 0, err
	}
	return 0, form.ErrVersionConflict
}

func (repo formRepository) DeleteFields(ctx context.Context, formID string, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	if _, err := execute(ctx, e, builder().Delete(tableFormFields).Where(squirrel.Eq{"form_id": formID})); err != nil {
		return errors.Wrap(err, "deleting form fields")
	}
	if _, err := execute(ctx, e, builder().Delete(tableFieldGroups).Where(squirrel.Eq{"form_id": formID})); err != nil {
		return errors.Wrap(err, "deleting field groups")
	}
	return nil
}

func (repo formRepository) InsertGroups(ctx context.Context, groups []form.FieldGroup, exec ...core.DBExecutor) error {
	if len(groups) == 0 {
		return nil
	}
	q := builder().Insert(tableFieldGroups).Columns(groupColumns...)
	for _, g := range groups {
		q = q.Values(g.ID, g.FormID, g.Name, g.Label, g.Order)
	}
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return trapErr(err, form.ErrNotFound, "inserting field groups")
	}
	return nil
}

// InsertFields expects parents before their children, as returned by form.Flatten.
func (repo formRepository) InsertFields(ctx context.Context, rows []form.FieldRow, exec ...core.DBExecutor) error {
	if len(rows) == 0 {
		return nil
	}
	q := builder().Insert(tableFormFields).Columns(fieldColumns...)
	for _, r := range rows {
		row, err := repo.boilField(r)
		if err != nil {
			return err
		}
		q = q.Values(
			row.ID, row.FormID, row.GroupID, row.ParentID, row.SubHeaderName, row.Key, row.Name,
			row.Label, row.Type, row.Required, row.Primary, row.Secondary,
			row.ReferenceDataName, row.Placeholder, row.AggregateFields, row.HasSubHeaders, row.SubHeaders,
			row.Order, row.Depth,
		)
	}
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		err = trapErr(err, form.ErrNotFound, "inserting form fields")
		if core.IsDuplicate(err) {
			return core.NewDuplicateError(err, "field_key")
		}
		return err
	}
	return nil
}

func (repo formRepository) QueryGroups(ctx context.Context, formID string, exec ...core.DBExecutor) ([]form.FieldGroup, error) {
	q := builder().Select(groupColumns...).From(tableFieldGroups).
		Where(squirrel.Eq{"form_id": formID}).OrderBy("group_order ASC")

	var rows []groupRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying field groups")
	}
	groups := make([]form.FieldGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, form.FieldGroup{
			ID:     row.ID,
			FormID: row.FormID,
			Name:   row.Name,
			Label:  row.Label,
			Order:  row.Order,
		})
	}
	return groups, nil
}

func (repo formRepository) QueryFields(ctx context.Context, formID string, exec ...core.DBExecutor) ([]form.FieldRow, error) {
	q := builder().Select(fieldColumns...).From(tableFormFields).
		Where(squirrel.Eq{"form_id": formID}).OrderBy("field_order ASC")

	var rows []fieldRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying form fields")
	}
	fields := make([]form.FieldRow, 0, len(rows))
	for _, row := range rows {
		f, err := repo.unboilField(row)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}
