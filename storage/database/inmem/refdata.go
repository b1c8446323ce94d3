package inmemdb

import (
	"context"
	"sort"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/refdata"
)

type refdataRepository struct {
	banks   *dataBankTable
	entries *entryTable
}

var _ refdata.Repository = (*refdataRepository)(nil)

func NewRefdataRepository(db *DB) refdata.Repository {
	return &refdataRepository{banks: db.dataBank, entries: db.entry}
}

func (repo *refdataRepository) bankNameTaken(bank refdata.DataBank) bool {
	if !bank.IsActive {
		return false
	}
	for _, b := range repo.banks.table {
		if b.ID != bank.ID && b.IsActive && b.Name == bank.Name {
			return true
		}
	}
	return false
}

func (repo *refdataRepository) CreateDataBank(ctx context.Context, bank refdata.DataBank, exec ...core.DBExecutor) (refdata.DataBank, error) {
	repo.banks.Lock()
	defer repo.banks.Unlock()

	if repo.bankNameTaken(bank) {
		return refdata.DataBank{}, core.NewDuplicateError(refdata.ErrDuplicateName, "name")
	}
	repo.banks.table[bank.ID] = bank
	return bank, nil
}

func (repo *refdataRepository) UpdateDataBank(ctx context.Context, bank refdata.DataBank, exec ...core.DBExecutor) (refdata.DataBank, error) {
	repo.banks.Lock()
	defer repo.banks.Unlock()

	if _, ok := repo.banks.table[bank.ID]; !ok {
		return refdata.DataBank{}, refdata.ErrDataBankNotFound
	}
	if repo.bankNameTaken(bank) {
		return refdata.DataBank{}, core.NewDuplicateError(refdata.ErrDuplicateName, "name")
	}
	repo.banks.table[bank.ID] = bank
	return bank, nil
}

func (repo *refdataRepository) GetDataBank(ctx context.Context, id string, exec ...core.DBExecutor) (refdata.DataBank, error) {
	repo.banks.RLock()
	defer repo.banks.RUnlock()

	if bank, ok := repo.banks.table[id]; ok {
		return bank, nil
	}
	return refdata.DataBank{}, refdata.ErrDataBankNotFound
}

func (repo *refdataRepository) GetDataBankByName(ctx context.Context, name string, exec ...core.DBExecutor) (refdata.DataBank, error) {
	repo.banks.RLock()
	defer repo.banks.RUnlock()

	for _, bank := range repo.banks.table {
		if bank.IsActive && bank.Name == name {
			return bank, nil
		}
	}
	return refdata.DataBank{}, refdata.ErrDataBankNotFound
}

func (repo *refdataRepository) QueryDataBanks(ctx context.Context, filter refdata.SetFilter, exec ...core.DBExecutor) ([]refdata.DataBank, error) {
	repo.banks.RLock()
	defer repo.banks.RUnlock()

	banks := make([]refdata.DataBank, 0, len(repo.banks.table))
	for _, b := range repo.banks.table {
		if !filter.IncludeInactive && !b.IsActive {
			continue
		}
		if filter.DepartmentID != "" && (b.DepartmentID == nil || *b.DepartmentID != filter.DepartmentID) {
			continue
		}
		banks = append(banks, b)
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].Name < banks[j].Name })
	return banks, nil
}

func (repo *refdataRepository) keyTaken(entry refdata.Entry) bool {
	if !entry.IsActive {
		return false
	}
	for _, e := range repo.entries.table {
		if e.ID != entry.ID && e.IsActive && e.DataBankID == entry.DataBankID && e.Key == entry.Key {
			return true
		}
	}
	return false
}

func (repo *refdataRepository) CreateEntry(ctx context.Context, entry refdata.Entry, exec ...core.DBExecutor) (refdata.Entry, error) {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	if repo.keyTaken(entry) {
		return refdata.Entry{}, core.NewDuplicateError(refdata.ErrDuplicateKey, "key")
	}
	repo.entries.table[entry.ID] = entry
	return entry, nil
}

func (repo *refdataRepository) UpdateEntry(ctx context.Context, entry refdata.Entry, exec ...core.DBExecutor) (refdata.Entry, error) {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	if _, ok := repo.entries.table[entry.ID]; !ok {
		return refdata.Entry{}, refdata.ErrEntryNotFound
	}
	if repo.keyTaken(entry) {
		return refdata.Entry{}, core.NewDuplicateError(refdata.ErrDuplicateKey, "key")
	}
	repo.entries.table[entry.ID] = entry
	return entry, nil
}

func (repo *refdataRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (refdata.Entry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	if entry, ok := repo.entries.table[id]; ok {
		return entry, nil
	}
	return refdata.Entry{}, refdata.ErrEntryNotFound
}

func (repo *refdataRepository) QueryEntries(ctx context.Context, bankID string, filter refdata.EntryFilter, exec ...core.DBExecutor) ([]refdata.Entry, error) {
	repo.entries.RLock()
	defer repo.entries.RUnlock()

	entries := make([]refdata.Entry, 0)
	for _, e := range repo.entries.table {
		if e.DataBankID != bankID || (!filter.IncludeInactive && !e.IsActive) {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if filter.Order == refdata.OrderByKey {
			return entries[i].Key < entries[j].Key
		}
		if entries[i].Value == entries[j].Value {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Value < entries[j].Value
	})
	return entries, nil
}

func (repo *refdataRepository) InsertEntries(ctx context.Context, entries []refdata.Entry, exec ...core.DBExecutor) ([]refdata.Entry, error) {
	repo.entries.Lock()
	defer repo.entries.Unlock()

	inserted := make([]refdata.Entry, 0, len(entries))
	for _, e := range entries {
		if repo.keyTaken(e) {
			continue
		}
		repo.entries.table[e.ID] = e
		inserted = append(inserted, e)
	}
	return inserted, nil
}
