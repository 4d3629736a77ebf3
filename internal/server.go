package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/andrewwb/trainsight/internal/activities"
	"github.com/andrewwb/trainsight/internal/athlete"
	"github.com/andrewwb/trainsight/internal/auth"
	"github.com/andrewwb/trainsight/internal/config"
	"github.com/andrewwb/trainsight/internal/db"
	"github.com/andrewwb/trainsight/internal/intensity"
	"github.com/andrewwb/trainsight/internal/middleware"
	"github.com/andrewwb/trainsight/internal/strava"
	"github.com/andrewwb/trainsight/internal/telemetry/metrics"
	"github.com/andrewwb/trainsight/internal/telemetry/tracing"
	"github.com/andrewwb/trainsight/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config         *config.Config
	dbPool         *pgxpool.Pool
	stravaClient   *strava.Client
	activitiesRepo *activities.Repo
	syncer         *activities.Syncer
	athleteService *athlete.Service

	stravaClientID     string
	stravaClientSecret string
	stravaHttpClient   *http.Client

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	StravaClientID          string
	StravaClientSecret      string
	StravaRefreshToken      string
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("trainsight", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // set to 1 when all is set up and running

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb)
	go authService.StartPeriodicScanAndClean(ctx, 8*time.Hour)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "trainsight-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	tokenSource := strava.NewRefreshTokenSource(strava.NewRefreshTokenSourceParams{
		OAuthBaseURL: params.Config.StravaOAuthBaseURL,
		ClientID:     params.StravaClientID,
		ClientSecret: params.StravaClientSecret,
		RefreshToken: params.StravaRefreshToken,
		HTTPClient:   tracedHttpClient,
	})
	stravaClient := strava.NewClient(strava.NewClientParams{
		BaseURL:     params.Config.StravaBaseURL,
		TokenSource: tokenSource,
		SportTypes:  params.Config.SportTypes,
		HTTPClient:  tracedHttpClient,
	})

	activitiesRepo := activities.NewRepo(dbPool)
	syncer := activities.NewSyncer(
		stravaClient,
		activitiesRepo,
		metricsManager,
		params.Config.SyncPageSize,
	)
	if params.Config.SyncIntervalMins > 0 {
		go syncer.StartPeriodicSync(
			ctx,
			time.Duration(params.Config.SyncIntervalMins)*time.Minute,
		)
	}

	athleteService := athlete.NewService(stravaClient, rdb, intensity.Profile{
		Age:              params.Config.AthleteAge,
		RestingHeartRate: params.Config.RestingHeartRate,
		MaxHeartRate:     params.Config.MaxHeartRate,
		Scale:            params.Config.IntensityScale,
	})

	return &Server{
		config:         params.Config,
		dbPool:         dbPool,
		stravaClient:   stravaClient,
		activitiesRepo: activitiesRepo,
		syncer:         syncer,
		athleteService: athleteService,
		versionInfo:    params.VersionInfo,

		stravaClientID:     params.StravaClientID,
		stravaClientSecret: params.StravaClientSecret,
		stravaHttpClient:   tracedHttpClient,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "I'm all fine")
	}).Methods("GET").Name("root")
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authHandler := auth.NewHandler(s.authService)
	authHandler.SetupRoutes(r, reqRateLimiter, s.config.LoginRateLimitAllowedPerMin)

	activitiesHandler := activities.NewHandler(s.activitiesRepo, s.syncer)
	r.HandleFunc("/trainsight/activities", activitiesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-activity")
	r.HandleFunc("/trainsight/activities/{id}", activitiesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-activity")
	r.HandleFunc("/trainsight/activities/{id}", activitiesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-activity")
	r.HandleFunc("/trainsight/activities/list/page/{page}/size/{size}", activitiesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-activities")
	r.HandleFunc("/trainsight/activities/sync", activitiesHandler.HandleSync).Methods("POST", "OPTIONS").Name("sync-activities")

	athleteProfile := intensity.Profile{
		Age:              s.config.AthleteAge,
		RestingHeartRate: s.config.RestingHeartRate,
		MaxHeartRate:     s.config.MaxHeartRate,
		Scale:            s.config.IntensityScale,
	}
	reportHandler := activities.NewReportHandler(s.activitiesRepo, athleteProfile)
	r.HandleFunc("/trainsight/report/daily", reportHandler.HandleDaily).Methods("GET", "OPTIONS").Name("report-daily")
	r.HandleFunc("/trainsight/report/weekly", reportHandler.HandleWeekly).Methods("GET", "OPTIONS").Name("report-weekly")
	r.HandleFunc("/trainsight/report/summary", reportHandler.HandleSummary).Methods("GET", "OPTIONS").Name("report-summary")
	r.HandleFunc("/trainsight/report/zones", reportHandler.HandleZones).Methods("GET", "OPTIONS").Name("report-zones")
	r.HandleFunc("/trainsight/report/trimp/{period}", reportHandler.HandleTRIMP).Methods("GET", "OPTIONS").Name("report-trimp")

	athleteHandler := athlete.NewHandler(s.athleteService)
	r.HandleFunc("/trainsight/athlete", athleteHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-athlete")

	// strava redirects here after the consent screen, one-time setup
	r.HandleFunc("/strava/auth/redirect", s.handleStravaAuthRedirect).Methods("GET", "OPTIONS").Name("strava-auth-redirect")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

// handleStravaAuthRedirect completes the one-time authorization code
// exchange. The returned refresh token goes into the service env, the
// running token source is not touched.
func (s *Server) handleStravaAuthRedirect(w http.ResponseWriter, r *http.Request) {
	if authErr := r.URL.Query().Get("error"); authErr != "" {
		log.Errorf("strava auth redirect, consent denied: %s", authErr)
		http.Error(w, "strava authorization denied", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	tokenResp, err := strava.ExchangeAuthorizationCode(
		r.Context(),
		s.config.StravaOAuthBaseURL,
		s.stravaClientID,
		s.stravaClientSecret,
		code,
		s.stravaHttpClient,
	)
	if err != nil {
		log.Errorf("strava auth redirect, code exchange failed: %s", err)
		http.Error(w, "authorization code exchange failed", http.StatusInternalServerError)
		return
	}

	log.Infof(
		"strava authorized for athlete %d [%s %s]",
		tokenResp.Athlete.ID, tokenResp.Athlete.FirstName, tokenResp.Athlete.LastName,
	)

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"refreshToken": %q}`, tokenResp.RefreshToken))
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
