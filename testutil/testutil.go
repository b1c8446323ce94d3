// Package testutil wires the services on the in-memory store for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statbureau/datahub/apps/di"
	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/refdata"
	"github.com/statbureau/datahub/core/report"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
	emailsvc "github.com/statbureau/datahub/services/email"
	logsvc "github.com/statbureau/datahub/services/logger"
	inmemdb "github.com/statbureau/datahub/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Str0ng!Pass#42"

type Env struct {
	Conf       *core.Config
	Logger     *logsvc.RollbarLogger
	Validate   *validator.Validate
	Translator ut.Translator
	DB         *inmemdb.DB
	Mail       *emailsvc.ConsoleService

	UserRepo       user.Repository
	DepartmentRepo department.Repository
	RefdataRepo    refdata.Repository
	FormRepo       form.Repository
	ScheduleRepo   schedule.Repository
	SubmissionRepo submission.Repository

	UserSvc       *user.Service
	DepartmentSvc *department.Service
	RefdataSvc    *refdata.Service
	FormSvc       *form.Service
	ScheduleSvc   *schedule.Service
	SubmissionSvc *submission.Service
	ReportSvc     *report.Service
}

// NewEnv returns a fresh environment backed by an empty in-memory store.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	validate, translator := di.NewValidator()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}

	env := &Env{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DB:             db,
		Mail:           emailsvc.NewConsoleServiceMock(conf, logger),
		UserRepo:       inmemdb.NewUserRepository(db),
		DepartmentRepo: inmemdb.NewDepartmentRepository(db),
		RefdataRepo:    inmemdb.NewRefdataRepository(db),
		FormRepo:       inmemdb.NewFormRepository(db),
		ScheduleRepo:   inmemdb.NewScheduleRepository(db),
		SubmissionRepo: inmemdb.NewSubmissionRepository(db),
	}
	env.UserSvc = user.NewService(env.UserRepo, env.Mail, conf)
	env.DepartmentSvc = department.NewService(env.DepartmentRepo)
	env.RefdataSvc = refdata.NewService(env.RefdataRepo, db)
	env.FormSvc = form.NewService(env.FormRepo, env.DepartmentRepo, db)
	env.ScheduleSvc = schedule.NewService(env.ScheduleRepo, env.FormRepo)
	env.SubmissionSvc = submission.NewService(env.SubmissionRepo, env.ScheduleSvc, env.FormSvc, env.RefdataSvc.Options)
	env.ReportSvc = report.NewService(env.ScheduleSvc, env.FormSvc, env.SubmissionSvc, env.UserSvc)
	return env
}

func (env *Env) CreateUser(t *testing.T, name, email, role string, deptID *string, isActive bool) user.User {
	t.Helper()
	now := core.Now()
	usr := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     name,
		Role:         role,
		DepartmentID: deptID,
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := env.UserRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateDepartment(t *testing.T, name string) department.Department {
	t.Helper()
	dept, err := env.DepartmentSvc.Create(context.Background(), department.NewDepartment{Name: name})
	if err != nil {
		t.Fatalf("CreateDepartment() failed: %v", err)
	}
	return dept
}

// CreateForm creates a form of deptID and defines its fields.
func (env *Env) CreateForm(t *testing.T, name, deptID string, fields ...form.FieldSpec) form.Form {
	t.Helper()
	ctx := context.Background()
	frm, err := env.FormSvc.Create(ctx, form.NewForm{Name: name, DepartmentID: deptID}, nil)
	if err != nil {
		t.Fatalf("CreateForm() failed: %v", err)
	}
	if len(fields) > 0 {
		df := form.DefineFields{Fields: fields}
		if err = df.Validate(env.Validate); err != nil {
			t.Fatalf("CreateForm() got invalid fields: %v", err)
		}
		if _, err = env.FormSvc.DefineFields(ctx, frm.ID, df); err != nil {
			t.Fatalf("CreateForm() failed to define fields: %v", err)
		}
		if frm, err = env.FormSvc.Get(ctx, frm.ID); err != nil {
			t.Fatalf("CreateForm() failed: %v", err)
		}
	}
	return frm
}

// CreateSchedule creates a schedule spanning start to end and moves it to status.
func (env *Env) CreateSchedule(t *testing.T, name string, start, end time.Time, status schedule.Status) schedule.Schedule {
	t.Helper()
	ctx := context.Background()
	svc := env.ScheduleSvc
	sch, err := svc.Create(ctx, schedule.NewSchedule{
		Name:      name,
		StartDate: core.Date{Time: start},
		EndDate:   core.Date{Time: end},
	}, nil)
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	path := map[schedule.Status][]schedule.Status{
		schedule.StatusCollection: {schedule.StatusCollection},
		schedule.StatusPublished:  {schedule.StatusCollection, schedule.StatusPublished},
		schedule.StatusCancelled:  {schedule.StatusCancelled},
	}
	for _, st := range path[status] {
		if sch, err = svc.Transition(ctx, sch.ID, st); err != nil {
			t.Fatalf("CreateSchedule() failed to move to %s: %v", st, err)
		}
	}
	return sch
}

func (env *Env) AttachForm(t *testing.T, scheduleID, formID string, required bool) schedule.ScheduleForm {
	t.Helper()
	sf, err := env.ScheduleSvc.AttachForm(context.Background(), schedule.AttachForm{
		ScheduleID: scheduleID,
		FormID:     formID,
		IsRequired: &required,
	})
	if err != nil {
		t.Fatalf("AttachForm() failed: %v", err)
	}
	return sf
}

// FreezeTime pins core.Now to now for the duration of the test.
func FreezeTime(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}
