package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/submission"
)

var submissionColumns = []string{"id", "form_id", "schedule_id", "submitted_by", "submitted_at", "data"}

type submissionRow struct {
	ID          string         `db:"id"`
	FormID      string         `db:"form_id"`
	ScheduleID  string         `db:"schedule_id"`
	SubmittedBy string         `db:"submitted_by"`
	SubmittedAt time.Time      `db:"submitted_at"`
	Data        types.JSONText `db:"data"`
}

type submissionRepository struct {
	base
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(exec core.DBExecutor) submission.Repository {
	return &submissionRepository{base{exec: exec}}
}

func (repo submissionRepository) unboil(row submissionRow) (submission.Submission, error) {
	data := form.Values{}
	if err := row.Data.Unmarshal(&data); err != nil {
		return submission.Submission{}, errors.Wrapf(err, "decoding data of submission %s", row.ID)
	}
	return submission.Submission{
		ID:          row.ID,
		FormID:      row.FormID,
		ScheduleID:  row.ScheduleID,
		SubmittedBy: row.SubmittedBy,
		SubmittedAt: row.SubmittedAt.UTC(),
		Data:        data,
	}, nil
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	data, err := json.Marshal(sub.Data)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "encoding submission data")
	}
	q := builder().Insert(tableSubmissions).Columns(submissionColumns...).Values(
		sub.ID, sub.FormID, sub.ScheduleID, sub.SubmittedBy, sub.SubmittedAt.UTC(), types.JSONText(data),
	)
	if _, err = execute(ctx, repo.getExec(exec), q); err != nil {
		return submission.Submission{}, trapErr(err, submission.ErrNotFound, "inserting submission")
	}
	return sub, nil
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (submission.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return submission.Submission{}, submission.ErrNotFound
	}
	q := builder().Select(submissionColumns...).From(tableSubmissions).Where(squirrel.Eq{"id": id})

	var row submissionRow
	if err := get(ctx, repo.getExec(exec), &row, q); err != nil {
		return submission.Submission{}, trapErr(err, submission.ErrNotFound, "finding submission")
	}
	return repo.unboil(row)
}

func filterSubmissions(q squirrel.SelectBuilder, filter submission.QueryFilter) squirrel.SelectBuilder {
	if filter.ScheduleID != "" {
		q = q.Where(squirrel.Eq{"schedule_id": filter.ScheduleID})
	}
	if filter.FormID != "" {
		q = q.Where(squirrel.Eq{"form_id": filter.FormID})
	}
	if filter.SubmittedBy != "" {
		q = q.Where(squirrel.Eq{"submitted_by": filter.SubmittedBy})
	}
	return q
}

func (repo submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter, exec ...core.DBExecutor) ([]submission.Submission, error) {
	q := filterSubmissions(builder().Select(submissionColumns...).From(tableSubmissions).OrderBy("submitted_at DESC"), filter)

	var rows []submissionRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := repo.unboil(row)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func countSubmissionsQuery(filter submission.QueryFilter) squirrel.SelectBuilder {
	return filterSubmissions(builder().Select("form_id", "COUNT(*) AS n").From(tableSubmissions), filter).GroupBy("form_id")
}

func (repo submissionRepository) CountSubmissions(ctx context.Context, filter submission.QueryFilter, exec ...core.DBExecutor) (map[string]int, error) {
	var rows []struct {
		FormID string `db:"form_id"`
		N      int    `db:"n"`
	}
	if err := selectAll(ctx, repo.getExec(exec), &rows, countSubmissionsQuery(filter)); err != nil {
		return nil, errors.Wrap(err, "counting submissions")
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.FormID] = row.N
	}
	return counts, nil
}
