package inmemdb

import (
	"context"
	"sort"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/schedule"
)

type scheduleRepository struct {
	schedules     *scheduleTable
	scheduleForms *scheduleFormTable
	forms         *formTable
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{schedules: db.schedule, scheduleForms: db.scheduleForm, forms: db.form}
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	repo.schedules.Lock()
	defer repo.schedules.Unlock()

	repo.schedules.table[sch.ID] = sch
	return sch, nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, sch schedule.Schedule, exec ...core.DBExecutor) (schedule.Schedule, error) {
	repo.schedules.Lock()
	defer repo.schedules.Unlock()

	if _, ok := repo.schedules.table[sch.ID]; !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	repo.schedules.table[sch.ID] = sch
	return sch, nil
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.Schedule, error) {
	repo.schedules.RLock()
	defer repo.schedules.RUnlock()

	if sch, ok := repo.schedules.table[id]; ok {
		return sch, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) QuerySchedules(ctx context.Context, filter schedule.QueryFilter, exec ...core.DBExecutor) ([]schedule.Schedule, error) {
	repo.schedules.RLock()
	defer repo.schedules.RUnlock()

	schedules := make([]schedule.Schedule, 0, len(repo.schedules.table))
	for _, sch := range repo.schedules.table {
		if filter.Status != "" && sch.Status != filter.Status {
			continue
		}
		if filter.DepartmentID != "" && (sch.DepartmentID == nil || *sch.DepartmentID != filter.DepartmentID) {
			continue
		}
		schedules = append(schedules, sch)
	}
	sort.Slice(schedules, func(i, j int) bool { return schedules[i].StartDate.After(schedules[j].StartDate) })
	return schedules, nil
}

func (repo *scheduleRepository) withFormName(sf schedule.ScheduleForm) schedule.ScheduleForm {
	repo.forms.RLock()
	defer repo.forms.RUnlock()

	if f, ok := repo.forms.table[sf.FormID]; ok {
		sf.FormName = f.Name
	}
	return sf
}

func (repo *scheduleRepository) CreateScheduleForm(ctx context.Context, sf schedule.ScheduleForm, exec ...core.DBExecutor) (schedule.ScheduleForm, error) {
	repo.scheduleForms.Lock()
	defer repo.scheduleForms.Unlock()

	for _, existing := range repo.scheduleForms.table {
		if existing.ScheduleID == sf.ScheduleID && existing.FormID == sf.FormID {
			return schedule.ScheduleForm{}, core.NewDuplicateError(schedule.ErrDuplicateAttachment, "form_id")
		}
	}
	repo.scheduleForms.table[sf.ID] = sf
	return repo.withFormName(sf), nil
}

func (repo *scheduleRepository) UpdateScheduleForm(ctx context.Context, sf schedule.ScheduleForm, exec ...core.DBExecutor) (schedule.ScheduleForm, error) {
	repo.scheduleForms.Lock()
	defer repo.scheduleForms.Unlock()

	if _, ok := repo.scheduleForms.table[sf.ID]; !ok {
		return schedule.ScheduleForm{}, schedule.ErrScheduleFormNotFound
	}
	repo.scheduleForms.table[sf.ID] = sf
	return repo.withFormName(sf), nil
}

func (repo *scheduleRepository) DeleteScheduleForm(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.scheduleForms.Lock()
	defer repo.scheduleForms.Unlock()

	if _, ok := repo.scheduleForms.table[id]; !ok {
		return schedule.ErrScheduleFormNotFound
	}
	delete(repo.scheduleForms.table, id)
	return nil
}

func (repo *scheduleRepository) GetScheduleForm(ctx context.Context, id string, exec ...core.DBExecutor) (schedule.ScheduleForm, error) {
	repo.scheduleForms.RLock()
	defer repo.scheduleForms.RUnlock()

	if sf, ok := repo.scheduleForms.table[id]; ok {
		return repo.withFormName(sf), nil
	}
	return schedule.ScheduleForm{}, schedule.ErrScheduleFormNotFound
}

func (repo *scheduleRepository) QueryScheduleForms(ctx context.Context, scheduleID string, exec ...core.DBExecutor) ([]schedule.ScheduleForm, error) {
	repo.scheduleForms.RLock()
	defer repo.scheduleForms.RUnlock()

	sfs := make([]schedule.ScheduleForm, 0)
	for _, sf := range repo.scheduleForms.table {
		if sf.ScheduleID == scheduleID {
			sfs = append(sfs, repo.withFormName(sf))
		}
	}
	sort.Slice(sfs, func(i, j int) bool { return sfs[i].FormName < sfs[j].FormName })
	return sfs, nil
}
