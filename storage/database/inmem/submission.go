package inmemdb

import (
	"context"
	"sort"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) submission.Repository {
	return &submissionRepository{db: db.submission}
}

func copyValues(v form.Values) form.Values {
	out := make(form.Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission, exec ...core.DBExecutor) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.table {
		if s.FormID == sub.FormID && s.ScheduleID == sub.ScheduleID && s.SubmittedBy == sub.SubmittedBy {
			return submission.Submission{}, core.NewDuplicateError(submission.ErrAlreadyExists, "form_id")
		}
	}
	sub.Data = copyValues(sub.Data)
	sub.Aggregates = nil
	repo.db.table[sub.ID] = sub
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		sub.Data = copyValues(sub.Data)
		return sub, nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func matches(s submission.Submission, filter submission.QueryFilter) bool {
	return (filter.ScheduleID == "" || s.ScheduleID == filter.ScheduleID) &&
		(filter.FormID == "" || s.FormID == filter.FormID) &&
		(filter.SubmittedBy == "" || s.SubmittedBy == filter.SubmittedBy)
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter, exec ...core.DBExecutor) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, s := range repo.db.table {
		if !matches(s, filter) {
			continue
		}
		s.Data = copyValues(s.Data)
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *submissionRepository) CountSubmissions(ctx context.Context, filter submission.QueryFilter, exec ...core.DBExecutor) (map[string]int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	counts := make(map[string]int)
	for _, s := range repo.db.table {
		if matches(s, filter) {
			counts[s.FormID]++
		}
	}
	return counts, nil
}
