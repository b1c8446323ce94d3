package inmemdb

import (
	"context"
	"sync"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/refdata"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
)

type (
	// DB is an in-memory store used by tests and local development.
	// Each table carries its own lock; WithinTx serializes units of work and
	// restores every table when the unit fails.
	DB struct {
		txMu sync.Mutex

		user         *userTable
		department   *departmentTable
		dataBank     *dataBankTable
		entry        *entryTable
		form         *formTable
		schedule     *scheduleTable
		scheduleForm *scheduleFormTable
		submission   *submissionTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]user.User
	}
	departmentTable struct {
		sync.RWMutex
		table map[string]department.Department
	}
	dataBankTable struct {
		sync.RWMutex
		table map[string]refdata.DataBank
	}
	entryTable struct {
		sync.RWMutex
		table map[string]refdata.Entry
	}
	formTable struct {
		sync.RWMutex
		table  map[string]form.Form
		groups map[string][]form.FieldGroup // by form id
		fields map[string][]form.FieldRow   // by form id
	}
	scheduleTable struct {
		sync.RWMutex
		table map[string]schedule.Schedule
	}
	scheduleFormTable struct {
		sync.RWMutex
		table map[string]schedule.ScheduleForm
	}
	submissionTable struct {
		sync.RWMutex
		table map[string]submission.Submission
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]user.User)},
		department:   &departmentTable{table: make(map[string]department.Department)},
		dataBank:     &dataBankTable{table: make(map[string]refdata.DataBank)},
		entry:        &entryTable{table: make(map[string]refdata.Entry)},
		form:         &formTable{table: make(map[string]form.Form), groups: make(map[string][]form.FieldGroup), fields: make(map[string][]form.FieldRow)},
		schedule:     &scheduleTable{table: make(map[string]schedule.Schedule)},
		scheduleForm: &scheduleFormTable{table: make(map[string]schedule.ScheduleForm)},
		submission:   &submissionTable{table: make(map[string]submission.Submission)},
	}
	return db, nil
}

// WithinTx runs fn and rolls every table back when it fails.
// The executor handed to fn is nil: in-memory repositories ignore it.
func (db *DB) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(nil); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users         map[string]user.User
	departments   map[string]department.Department
	dataBanks     map[string]refdata.DataBank
	entries       map[string]refdata.Entry
	forms         map[string]form.Form
	groups        map[string][]form.FieldGroup
	fields        map[string][]form.FieldRow
	schedules     map[string]schedule.Schedule
	scheduleForms map[string]schedule.ScheduleForm
	submissions   map[string]submission.Submission
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *DB) snapshot() snapshot {
	db.user.RLock()
	defer db.user.RUnlock()
	db.department.RLock()
	defer db.department.RUnlock()
	db.dataBank.RLock()
	defer db.dataBank.RUnlock()
	db.entry.RLock()
	defer db.entry.RUnlock()
	db.form.RLock()
	defer db.form.RUnlock()
	db.schedule.RLock()
	defer db.schedule.RUnlock()
	db.scheduleForm.RLock()
	defer db.scheduleForm.RUnlock()
	db.submission.RLock()
	defer db.submission.RUnlock()

	return snapshot{
		users:         copyMap(db.user.table),
		departments:   copyMap(db.department.table),
		dataBanks:     copyMap(db.dataBank.table),
		entries:       copyMap(db.entry.table),
		forms:         copyMap(db.form.table),
		groups:        copyMap(db.form.groups),
		fields:        copyMap(db.form.fields),
		schedules:     copyMap(db.schedule.table),
		scheduleForms: copyMap(db.scheduleForm.table),
		submissions:   copyMap(db.submission.table),
	}
}

func (db *DB) restore(snap snapshot) {
	db.user.Lock()
	db.user.table = snap.users
	db.user.Unlock()

	db.department.Lock()
	db.department.table = snap.departments
	db.department.Unlock()

	db.dataBank.Lock()
	db.dataBank.table = snap.dataBanks
	db.dataBank.Unlock()

	db.entry.Lock()
	db.entry.table = snap.entries
	db.entry.Unlock()

	db.form.Lock()
	db.form.table = snap.forms
	db.form.groups = snap.groups
	db.form.fields = snap.fields
	db.form.Unlock()

	db.schedule.Lock()
	db.schedule.table = snap.schedules
	db.schedule.Unlock()

	db.scheduleForm.Lock()
	db.scheduleForm.table = snap.scheduleForms
	db.scheduleForm.Unlock()

	db.submission.Lock()
	db.submission.table = snap.submissions
	db.submission.Unlock()
}
