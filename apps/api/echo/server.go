package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/statbureau/datahub/core"
	"github.com/statbureau/datahub/core/department"
	"github.com/statbureau/datahub/core/form"
	"github.com/statbureau/datahub/core/refdata"
	"github.com/statbureau/datahub/core/report"
	"github.com/statbureau/datahub/core/schedule"
	"github.com/statbureau/datahub/core/submission"
	"github.com/statbureau/datahub/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		UserSvc       user.ServiceInterface
		DepartmentSvc *department.Service
		RefdataSvc    *refdata.Service
		FormSvc       *form.Service
		ScheduleSvc   *schedule.Service
		SubmissionSvc *submission.Service
		ReportSvc     *report.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if len(conf.Server.CORSOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     conf.Server.CORSOrigins,
			AllowCredentials: true,
		}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.GET("/", home)
	s.app.GET("/metrics", s.metrics.handler())

	api := s.app.Group("/api")
	session := sessionMiddleware(conf, s.deps.UserSvc)

	registerAuthAPI(api, session, s.deps)
	registerUserAPI(api, session, s.deps)
	registerDepartmentAPI(api, session, s.deps)
	registerRefdataAPI(api, session, s.deps, s.metrics)
	registerFormAPI(api, session, s.deps)
	registerScheduleAPI(api, session, s.deps)
	registerSubmissionAPI(api, session, s.deps, s.metrics)
	registerReportAPI(api, session, s.deps)
}

// Start listens on the configured address. Failures are reported through Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// signalShutdown asks main to shut the server down gracefully.
func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to DataHub API!")
}
