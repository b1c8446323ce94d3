package refdata

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/statbureau/datahub/core"
)

const optionsCacheTTL = 5 * time.Minute

var (
	// errors
	ErrDataBankNotFound = core.NewNotFoundError("data bank")
	ErrEntryNotFound    = core.NewNotFoundError("data bank entry")
	ErrDuplicateName    = errors.New("a data bank with this name already exists")
	ErrDuplicateKey     = errors.New("an entry with this key already exists")
)

type (
	Repository interface {
		CreateDataBank(ctx context.Context, bank DataBank, exec ...core.DBExecutor) (DataBank, error)
		UpdateDataBank(ctx context.Context, bank DataBank, exec ...core.DBExecutor) (DataBank, error)
		GetDataBank(ctx context.Context, id string, exec ...core.DBExecutor) (DataBank, error)
		// GetDataBankByName only looks at active data banks.
		GetDataBankByName(ctx context.Context, name string, exec ...core.DBExecutor) (DataBank, error)
		// QueryDataBanks returns data banks ordered by name.
		QueryDataBanks(ctx context.Context, filter SetFilter, exec ...core.DBExecutor) ([]DataBank, error)

		CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		UpdateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
		QueryEntries(ctx context.Context, bankID string, filter EntryFilter, exec ...core.DBExecutor) ([]Entry, error)
		// InsertEntries inserts entries, silently ignoring rows whose key collides with
		// an active entry, and returns the rows actually inserted. Large inputs may be
		// written in several statements; callers pass a transaction to keep them atomic.
		InsertEntries(ctx context.Context, entries []Entry, exec ...core.DBExecutor) ([]Entry, error)
	}

	Service struct {
		repo  Repository
		tx    core.Transactor
		cache *cache.Cache
	}
)

func NewService(repo Repository, tx core.Transactor) *Service {
	return &Service{
		repo:  repo,
		tx:    tx,
		cache: cache.New(optionsCacheTTL, 2*optionsCacheTTL),
	}
}

func (svc *Service) invalidate(names ...string) {
	for _, name := range names {
		svc.cache.Delete(name)
	}
}

// Data banks

func (svc *Service) CreateSet(ctx context.Context, nb NewDataBank, createdBy *string) (DataBank, error) {
	now := core.Now()
	bank, err := svc.repo.CreateDataBank(ctx, DataBank{
		ID:           uuid.NewString(),
		Name:         nb.Name,
		Description:  nb.Description,
		DepartmentID: nb.DepartmentID,
		IsActive:     true,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return DataBank{}, duplicateAs(err, ErrDuplicateName, "name")
	}
	svc.invalidate(bank.Name)
	return bank, nil
}

func (svc *Service) GetSet(ctx context.Context, id string) (DataBank, error) {
	return svc.repo.GetDataBank(ctx, id)
}

func (svc *Service) ListSets(ctx context.Context, filter SetFilter) ([]DataBank, error) {
	filter.DepartmentID = core.CleanString(filter.DepartmentID)
	return svc.repo.QueryDataBanks(ctx, filter)
}

func (svc *Service) UpdateSet(ctx context.Context, id string, ub UpdateDataBank) (DataBank, error) {
	bank, err := svc.repo.GetDataBank(ctx, id)
	if err != nil {
		return DataBank{}, err
	}
	oldName := bank.Name
	bank.Name = ub.Name
	if ub.Description != nil {
		bank.Description = *ub.Description
	}
	bank.DepartmentID = ub.DepartmentID
	bank.UpdatedAt = core.Now()

	if bank, err = svc.repo.UpdateDataBank(ctx, bank); err != nil {
		return DataBank{}, duplicateAs(err, ErrDuplicateName, "name")
	}
	svc.invalidate(oldName, bank.Name)
	return bank, nil
}

// DeactivateSet soft deletes a data bank. Select fields referencing it degrade to no options.
func (svc *Service) DeactivateSet(ctx context.Context, id string) error {
	bank, err := svc.repo.GetDataBank(ctx, id)
	if err != nil {
		return err
	}
	if !bank.IsActive {
		return nil
	}
	bank.IsActive = false
	bank.UpdatedAt = core.Now()
	if _, err = svc.repo.UpdateDataBank(ctx, bank); err != nil {
		return err
	}
	svc.invalidate(bank.Name)
	return nil
}

// Entries

func (svc *Service) ListEntries(ctx context.Context, bankID string, filter EntryFilter) ([]Entry, error) {
	if _, err := svc.repo.GetDataBank(ctx, bankID); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryEntries(ctx, bankID, filter)
}

func (svc *Service) AddEntry(ctx context.Context, bankID string, ne NewEntry, createdBy *string) (Entry, error) {
	bank, err := svc.activeBank(ctx, bankID)
	if err != nil {
		return Entry{}, err
	}
	now := core.Now()
	entry, err := svc.repo.CreateEntry(ctx, Entry{
		ID:         uuid.NewString(),
		DataBankID: bank.ID,
		Key:        ne.Key,
		Value:      ne.Value,
		IsActive:   true,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Entry{}, duplicateAs(err, ErrDuplicateKey, "key")
	}
	svc.invalidate(bank.Name)
	return entry, nil
}

func (svc *Service) GetEntry(ctx context.Context, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

func (svc *Service) UpdateEntry(ctx context.Context, id string, ue UpdateEntry) (Entry, error) {
	entry, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	bank, err := svc.repo.GetDataBank(ctx, entry.DataBankID)
	if err != nil {
		return Entry{}, err
	}
	entry.Key = ue.Key
	entry.Value = ue.Value
	entry.UpdatedAt = core.Now()
	if entry, err = svc.repo.UpdateEntry(ctx, entry); err != nil {
		return Entry{}, duplicateAs(err, ErrDuplicateKey, "key")
	}
	svc.invalidate(bank.Name)
	return entry, nil
}

// DeactivateEntry soft deletes an entry so that historical submissions keep resolving it.
func (svc *Service) DeactivateEntry(ctx context.Context, id string) error {
	entry, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if !entry.IsActive {
		return nil
	}
	bank, err := svc.repo.GetDataBank(ctx, entry.DataBankID)
	if err != nil {
		return err
	}
	entry.IsActive = false
	entry.UpdatedAt = core.Now()
	if _, err = svc.repo.UpdateEntry(ctx, entry); err != nil {
		return err
	}
	svc.invalidate(bank.Name)
	return nil
}

// BulkAddEntries imports comma or newline separated values into a data bank.
// Values whose key is empty or already exists are skipped and reported, never failing the batch.
func (svc *Service) BulkAddEntries(ctx context.Context, bankID, raw string, createdBy *string) (BulkResult, error) {
	bank, err := svc.activeBank(ctx, bankID)
	if err != nil {
		return BulkResult{}, err
	}

	values := ParseBulk(raw)
	if len(values) == 0 {
		return BulkResult{}, core.NewValidationError(nil, core.FieldError{Field: "raw", Error: "no values to import"})
	}

	result := BulkResult{Inserted: []Entry{}, Skipped: []string{}}
	now := core.Now()
	entries := make([]Entry, 0, len(values))
	keys := make(map[string]struct{}, len(values))
	for _, val := range values {
		key := GenerateKey(val)
		if _, dup := keys[key]; dup || key == "" {
			result.Skipped = append(result.Skipped, val)
			continue
		}
		keys[key] = struct{}{}
		entries = append(entries, Entry{
			ID:         uuid.NewString(),
			DataBankID: bank.ID,
			Key:        key,
			Value:      val,
			IsActive:   true,
			CreatedBy:  createdBy,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if len(entries) > 0 {
		var inserted []Entry
		err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
			var err error
			inserted, err = svc.repo.InsertEntries(ctx, entries, exec)
			return err
		})
		if err != nil {
			return BulkResult{}, errors.Wrap(err, "inserting entries")
		}
		insertedKeys := make(map[string]struct{}, len(inserted))
		for _, e := range inserted {
			insertedKeys[e.Key] = struct{}{}
		}
		for _, e := range entries {
			if _, ok := insertedKeys[e.Key]; !ok {
				result.Skipped = append(result.Skipped, e.Value)
			}
		}
		result.Inserted = inserted
		svc.invalidate(bank.Name)
	}

	if n := len(result.Skipped); n > 0 {
		result.Warning = fmt.Sprintf("%d of %d values were skipped: their key is empty or already exists", n, len(values))
	}
	return result, nil
}

// Options returns the active entries of the named data bank ordered by value.
// An unknown or inactive data bank yields no options rather than an error.
func (svc *Service) Options(ctx context.Context, name string) ([]Option, error) {
	name = core.CleanString(name)
	if cached, ok := svc.cache.Get(name); ok {
		return cached.([]Option), nil
	}

	opts := make([]Option, 0)
	bank, err := svc.repo.GetDataBankByName(ctx, name)
	switch {
	case core.IsNotFound(err):
		svc.cache.SetDefault(name, opts)
		return opts, nil
	case err != nil:
		return nil, err
	}

	entries, err := svc.repo.QueryEntries(ctx, bank.ID, EntryFilter{Order: OrderByValue})
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		opts = append(opts, Option{Key: e.Key, Value: e.Value})
	}
	svc.cache.SetDefault(name, opts)
	return opts, nil
}

func (svc *Service) activeBank(ctx context.Context, id string) (DataBank, error) {
	bank, err := svc.repo.GetDataBank(ctx, id)
	if err != nil {
		return DataBank{}, err
	}
	if !bank.IsActive {
		return DataBank{}, core.NewStateError(errors.New("data bank is inactive"))
	}
	return bank, nil
}

// duplicateAs replaces the storage level duplicate error with a domain message.
func duplicateAs(err, domainErr error, field string) error {
	if core.IsDuplicate(err) {
		return core.NewDuplicateError(domainErr, field)
	}
	return err
}
