package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/redis/go-redis/v9"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/apps/shared"
	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/core/user"
	emailsvc "github.com/trezcool/chuo/services/email"
	logsvc "github.com/trezcool/chuo/services/logger"
	"github.com/trezcool/chuo/services/metrics"
	"github.com/trezcool/chuo/services/ratelimit"
	"github.com/trezcool/chuo/storage/database"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")

	// set up DB
	db, err := setUpDB(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up rate limiting
	var rdb *redis.Client
	if conf.Server.RateLimitBackend == ratelimit.BackendRedis {
		rdb = redis.NewClient(&redis.Options{Addr: conf.Redis.Addr})
		defer func() { _ = rdb.Close() }()
	}
	limiter, err := ratelimit.New(conf, rdb)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up rate limiter: %v", err), err)
	}

	// set up services
	m := metrics.New()
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger, emailsvc.WithObserver(m))
	}
	svcs := shared.NewServices(db, mailSvc, conf, m)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			Metrics:         m,
			Limiter:         limiter,
			DB:              db,
			UserSvc:         svcs.User,
			OrganizationSvc: svcs.Organization,
			StudentSvc:      svcs.Student,
			AcademicSvc:     svcs.Academic,
			TimetableSvc:    svcs.Timetable,
			FeeSvc:          svcs.Fee,
			WalletSvc:       svcs.Wallet,
			LibrarySvc:      svcs.Library,
			HostelSvc:       svcs.Hostel,
			AssessmentSvc:   svcs.Assessment,
			DashboardSvc:    svcs.Dashboard,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config, logger *logsvc.RollbarLogger) (*database.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf, logger.Std())
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
