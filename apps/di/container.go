// Package di builds the application services on top of a postgres database.
package di

import (
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/refdata"
	"github.com/statbureau/datahub/core/report"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
	emailsvc "github.com/statbureau/datahub/services/email"
	"github.com/statbureau/datahub/storage/database"
	sqlxrepos "github.com/statbureau/datahub/storage/database/sqlx"
)

type Container struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       core.EmailService

	UserSvc       *user.Service
	DepartmentSvc *department.Service
	RefdataSvc    *refdata.Service
	FormSvc       *form.Service
	ScheduleSvc   *schedule.Service
	SubmissionSvc *submission.Service
	ReportSvc     *report.Service
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	form.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	return validate, translator
}

// NewEmailService prints emails in debug mode and sends them through Sendgrid otherwise.
func NewEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger, &http.Client{Timeout: 30 * time.Second})
}

func New(conf *core.Config, logger core.Logger, db *sqlx.DB) *Container {
	validate, translator := NewValidator()

	usrRepo := sqlxrepos.NewUserRepository(db)
	deptRepo := sqlxrepos.NewDepartmentRepository(db)
	formRepo := sqlxrepos.NewFormRepository(db)

	c := &Container{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Mail:       NewEmailService(conf, logger),
	}
	c.UserSvc = user.NewService(usrRepo, c.Mail, conf)
	c.DepartmentSvc = department.NewService(deptRepo)
	c.RefdataSvc = refdata.NewService(sqlxrepos.NewRefdataRepository(db), database.NewTransactor(db))
	c.FormSvc = form.NewService(formRepo, deptRepo, database.NewTransactor(db))
	c.ScheduleSvc = schedule.NewService(sqlxrepos.NewScheduleRepository(db), formRepo)
	c.SubmissionSvc = submission.NewService(sqlxrepos.NewSubmissionRepository(db), c.ScheduleSvc, c.FormSvc, c.RefdataSvc.Options)
	c.ReportSvc = report.NewService(c.ScheduleSvc, c.FormSvc, c.SubmissionSvc, c.UserSvc)
	return c
}
