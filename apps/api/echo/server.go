package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/academic"
	"github.com/trezcool/chuo/core/assessment"
	"github.com/trezcool/chuo/core/chat"
	"github.com/trezcool/chuo/core/dashboard"
	"github.com/trezcool/chuo/core/fee"
	"github.com/trezcool/chuo/core/hostel"
	"github.com/trezcool/chuo/core/library"
	"github.com/trezcool/chuo/core/organization"
	"github.com/trezcool/chuo/core/student"
	"github.com/trezcool/chuo/core/timetable"
	"github.com/trezcool/chuo/core/user"
	"github.com/trezcool/chuo/core/wallet"
	"github.com/trezcool/chuo/services/metrics"
	"github.com/trezcool/chuo/services/ratelimit"
)

type (
	// Pinger reports whether a backing store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		Metrics        *metrics.Metrics
		Limiter        ratelimit.Limiter
		DB             Pinger
		DisableReqLogs bool

		UserSvc         user.Service
		OrganizationSvc *organization.Service
		StudentSvc      *student.Service
		AcademicSvc     *academic.Service
		TimetableSvc    *timetable.Service
		FeeSvc          *fee.Service
		WalletSvc       *wallet.Service
		LibrarySvc      *library.Service
		HostelSvc       *hostel.Service
		AssessmentSvc   *assessment.Service
		DashboardSvc    *dashboard.Service
		Assistant       *chat.Assistant
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Assistant == nil {
		deps.Assistant = chat.NewAssistant()
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(metricsMiddleware(s.deps.Metrics))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.health)
	s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()

	s.registerUserAPI(v1, jwt)
	s.registerOrganizationAPI(v1, jwt)
	s.registerStudentAPI(v1, jwt)
	s.registerRecordsAPI(v1, jwt)
	s.registerTimetableAPI(v1, jwt)
	s.registerWalletAPI(v1, jwt)
	s.registerLibraryAPI(v1, jwt)
	s.registerHostelAPI(v1, jwt)
	s.registerAssessmentAPI(v1, jwt)
	s.registerDashboardAPI(v1, jwt)
}

// Start listens on the configured address. Listener failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// GenerateToken returns a signed access token for usr.
func (s *Server) GenerateToken(usr user.User) (string, error) {
	return s.auth.generateToken(s.auth.claimsFor(usr))
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func (s *Server) health(ctx echo.Context) error {
	status, dbOK := http.StatusOK, true
	if s.deps.DB != nil {
		if err := s.deps.DB.Ping(ctx.Request().Context()); err != nil {
			s.deps.Logger.Error("health: database unreachable", err)
			status, dbOK = http.StatusServiceUnavailable, false
		}
	}
	return ctx.JSON(status, echo.Map{"status": http.StatusText(status), "db": dbOK, "build": s.deps.Conf.Build})
}
