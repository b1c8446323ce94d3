package sqlxrepos

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/refdata"
)

var (
	dataBankColumns = []string{
		"id", "name", "description", "department_id", "is_active", "created_by", "created_at", "updated_at",
	}
	entryColumns = []string{
		"id", "data_bank_id", "key", "value", "is_active", "created_by", "created_at", "updated_at",
	}
)

type (
	dataBankRow struct {
		ID           string      `db:"id"`
		Name         string      `db:"name"`
		Description  string      `db:"description"`
		DepartmentID null.String `db:"department_id"`
		IsActive     bool        `db:"is_active"`
		CreatedBy    null.String `db:"created_by"`
		CreatedAt    time.Time   `db:"created_at"`
		UpdatedAt    time.Time   `db:"updated_at"`
	}

	entryRow struct {
		ID         string      `db:"id"`
		DataBankID string      `db:"data_bank_id"`
		Key        string      `db:"key"`
		Value      string      `db:"value"`
		IsActive   bool        `db:"is_active"`
		CreatedBy  null.String `db:"created_by"`
		CreatedAt  time.Time   `db:"created_at"`
		UpdatedAt  time.Time   `db:"updated_at"`
	}
)

type refdataRepository struct {
	base
}

var _ refdata.Repository = (*refdataRepository)(nil)

func NewRefdataRepository(exec core.DBExecutor) refdata.Repository {
	return &refdataRepository{base{exec: exec}}
}

func (repo refdataRepository) boilBank(bank refdata.DataBank) dataBankRow {
	return dataBankRow{
		ID:           bank.ID,
		Name:         bank.Name,
		Description:  bank.Description,
		DepartmentID: null.StringFromPtr(bank.DepartmentID),
		IsActive:     bank.IsActive,
		CreatedBy:    null.StringFromPtr(bank.CreatedBy),
		CreatedAt:    bank.CreatedAt.UTC(),
		UpdatedAt:    bank.UpdatedAt.UTC(),
	}
}

func (repo refdataRepository) unboilBank(row dataBankRow) refdata.DataBank {
	return refdata.DataBank{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		DepartmentID: row.DepartmentID.Ptr(),
		IsActive:     row.IsActive,
		CreatedBy:    row.CreatedBy.Ptr(),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}

func (repo refdataRepository) boilEntry(entry refdata.Entry) entryRow {
	return entryRow{
		ID:         entry.ID,
		DataBankID: entry.DataBankID,
		Key:        entry.Key,
		Value:      entry.Value,
		IsActive:   entry.IsActive,
		CreatedBy:  null.StringFromPtr(entry.CreatedBy),
		CreatedAt:  entry.CreatedAt.UTC(),
		UpdatedAt:  entry.UpdatedAt.UTC(),
	}
}

func (repo refdataRepository) unboilEntry(row entryRow) refdata.Entry {
	return refdata.Entry{
		ID:         row.ID,
		DataBankID: row.DataBankID,
		Key:        row.Key,
		Value:      row.Value,
		IsActive:   row.IsActive,
		CreatedBy:  row.CreatedBy.Ptr(),
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

func (repo refdataRepository) trapBankErr(err error, msg string) error {
	err = trapErr(err, refdata.ErrDataBankNotFound, msg)
	if core.IsDuplicate(err) {
		return core.NewDuplicateError(refdata.ErrDuplicateName, "name")
	}
	return err
}

func (repo refdataRepository) trapEntryErr(err error, msg string) error {
	err = trapErr(err, refdata.ErrEntryNotFound, msg)
	if core.IsDuplicate(err) {
		return core.NewDuplicateError(refdata.ErrDuplicateKey, "key")
	}
	return err
}

// Data banks

func (repo refdataRepository) CreateDataBank(ctx context.Context, bank refdata.DataBank, exec ...core.DBExecutor) (refdata.DataBank, error) {
	row := repo.boilBank(bank)
	q := builder().Insert(tableDataBanks).Columns(dataBankColumns...).Values(
		row.ID, row.Name, row.Description, row.DepartmentID, row.IsActive, row.CreatedBy, row.CreatedAt, row.UpdatedAt,
	)
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return refdata.DataBank{}, repo.trapBankErr(err, "inserting data bank")
	}
	return repo.unboilBank(row), nil
}

func (repo refdataRepository) UpdateDataBank(ctx context.Context, bank refdata.DataBank, exec ...core.DBExecutor) (refdata.DataBank, error) {
	row := repo.boilBank(bank)
	q := builder().Update(tableDataBanks).SetMap(map[string]interface{}{
		"name":          row.Name,
		"description":   row.Description,
		"department_id": row.DepartmentID,
		"is_active":     row.IsActive,
		"updated_at":    row.UpdatedAt,
	}).Where(squirrel.Eq{"id": row.ID})

	n, err := execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return refdata.DataBank{}, repo.trapBankErr(err, "updating data bank")
	}
	if n == 0 {
		return refdata.DataBank{}, refdata.ErrDataBankNotFound
	}
	return repo.unboilBank(row), nil
}

func (repo refdataRepository) getBank(ctx context.Context, exec core.DBExecutor, pred interface{}) (refdata.DataBank, error) {
	q := builder().Select(dataBankColumns...).From(tableDataBanks).Where(pred)

	var row dataBankRow
	if err := get(ctx, exec, &row, q); err != nil {
		return refdata.DataBank{}, repo.trapBankErr(err, "finding data bank")
	}
	return repo.unboilBank(row), nil
}

func (repo refdataRepository) GetDataBank(ctx context.Context, id string, exec ...core.DBExecutor) (refdata.DataBank, error) {
	if _, err := uuid.Parse(id); err != nil {
		return refdata.DataBank{}, refdata.ErrDataBankNotFound
	}
	return repo.getBank(ctx, repo.getExec(exec), squirrel.Eq{"id": id})
}

func (repo refdataRepository) GetDataBankByName(ctx context.Context, name string, exec ...core.DBExecutor) (refdata.DataBank, error) {
	return repo.getBank(ctx, repo.getExec(exec), squirrel.Eq{"name": name, "is_active": true})
}

func (repo refdataRepository) QueryDataBanks(ctx context.Context, filter refdata.SetFilter, exec ...core.DBExecutor) ([]refdata.DataBank, error) {
	q := builder().Select(dataBankColumns...).From(tableDataBanks).OrderBy("name ASC")
	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.DepartmentID != "" {
		q = q.Where(squirrel.Eq{"department_id": filter.DepartmentID})
	}

	var rows []dataBankRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying data banks")
	}
	banks := make([]refdata.DataBank, 0, len(rows))
	for _, row := range rows {
		banks = append(banks, repo.unboilBank(row))
	}
	return banks, nil
}

// Entries

func (repo refdataRepository) CreateEntry(ctx context.Context, entry refdata.Entry, exec ...core.DBExecutor) (refdata.Entry, error) {
	row := repo.boilEntry(entry)
	q := builder().Insert(tableEntries).Columns(entryColumns...).Values(
		row.ID, row.DataBankID, row.Key, row.Value, row.IsActive, row.CreatedBy, row.CreatedAt, row.UpdatedAt,
	)
	if _, err := execute(ctx, repo.getExec(exec), q); err != nil {
		return refdata.Entry{}, repo.trapEntryErr(err, "inserting entry")
	}
	return repo.unboilEntry(row), nil
}

func (repo refdataRepository) UpdateEntry(ctx context.Context, entry refdata.Entry, exec ...core.DBExecutor) (refdata.Entry, error) {
	row := repo.boilEntry(entry)
	q := builder().Update(tableEntries).SetMap(map[string]interface{}{
		"key":        row.Key,
		"value":      row.Value,
		"is_active":  row.IsActive,
		"updated_at": row.UpdatedAt,
	}).Where(squirrel.Eq{"id": row.ID})

	n, err := execute(ctx, repo.getExec(exec), q)
	if err != nil {
		return refdata.Entry{}, repo.trapEntryErr(err, "updating entry")
	}
	if n == 0 {
		return refdata.Entry{}, refdata.ErrEntryNotFound
	}
	return repo.unboilEntry(row), nil
}

func (repo refdataRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (refdata.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return refdata.Entry{}, refdata.ErrEntryNotFound
	}
	q := builder().Select(entryColumns...).From(tableEntries).Where(squirrel.Eq{"id": id})

	var row entryRow
	if err := get(ctx, repo.getExec(exec), &row, q); err != nil {
		return refdata.Entry{}, repo.trapEntryErr(err, "finding entry")
	}
	return repo.unboilEntry(row), nil
}

func (repo refdataRepository) QueryEntries(ctx context.Context, bankID string, filter refdata.EntryFilter, exec ...core.DBExecutor) ([]refdata.Entry, error) {
	q := builder().Select(entryColumns...).From(tableEntries).Where(squirrel.Eq{"data_bank_id": bankID})
	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.Order == refdata.OrderByKey {
		q = q.OrderBy("key ASC")
	} else {
		q = q.OrderBy("value ASC", "key ASC")
	}

	var rows []entryRow
	if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	entries := make([]refdata.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, repo.unboilEntry(row))
	}
	return entries, nil
}

// entryInsertBatchSize keeps every insert statement far below the 65535 bind
// parameters postgres accepts.
const entryInsertBatchSize = 1000

// entryInsertBatches splits entries into insert statements of at most entryInsertBatchSize rows.
func (repo refdataRepository) entryInsertBatches(entries []refdata.Entry) []squirrel.InsertBuilder {
	batches := make([]squirrel.InsertBuilder, 0, len(entries)/entryInsertBatchSize+1)
	for start := 0; start < len(entries); start += entryInsertBatchSize {
		end := start + entryInsertBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		q := builder().Insert(tableEntries).Columns(entryColumns...)
		for _, e := range entries[start:end] {
			row := repo.boilEntry(e)
			q = q.Values(row.ID, row.DataBankID, row.Key, row.Value, row.IsActive, row.CreatedBy, row.CreatedAt, row.UpdatedAt)
		}
		batches = append(batches, q.Suffix("ON CONFLICT DO NOTHING RETURNING "+joinColumns(entryColumns)))
	}
	return batches
}

func (repo refdataRepository) InsertEntries(ctx context.Context, entries []refdata.Entry, exec ...core.DBExecutor) ([]refdata.Entry, error) {
	inserted := make([]refdata.Entry, 0, len(entries))
	for _, q := range repo.entryInsertBatches(entries) {
		var rows []entryRow
		if err := selectAll(ctx, repo.getExec(exec), &rows, q); err != nil {
			return nil, repo.trapEntryErr(err, "inserting entries")
		}
		for _, row := range rows {
			inserted = append(inserted, repo.unboilEntry(row))
		}
	}
	return inserted, nil
}
