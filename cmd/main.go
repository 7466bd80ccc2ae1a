package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vividly/api/handler"
	apiMiddleware "vividly/api/middleware"
	"vividly/api/routes"
	"vividly/config"
	"vividly/internal/repository"
	"vividly/internal/service"
	"vividly/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.IsProduction() && cfg.JWTSecretKey == "your-secret-key-change-in-production" {
		logger.Fatal("JWT_SECRET_KEY must be set in production")
	}

	shutdownTracing, err := config.InitTracing(ctx, cfg.OTELServiceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.WithError(err).Fatal("init tracing")
	}

	db, err := config.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}
	if cfg.AutoMigrate {
		if err := config.Migrate(db); err != nil {
			logger.WithError(err).Fatal("migrate database")
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("database handle")
	}

	tokens, err := utils.NewTokenManager(utils.TokenConfig{
		Secret:     []byte(cfg.JWTSecretKey),
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	})
	if err != nil {
		logger.WithError(err).Fatal("token manager")
	}

	tx := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	verificationRepo := repository.NewVerificationTokenRepository(db)
	securityRepo := repository.NewSecurityLogRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	passwordHasher := service.BcryptPasswordHasher{}
	clock := service.RealClock{}

	var emailSender service.EmailSender
	if sender := service.NewResendEmailSender(cfg.ResendAPIKey, cfg.EmailFrom, cfg.FrontendURL); sender != nil {
		emailSender = sender
	} else {
		logger.Warn("RESEND_API_KEY not set, email delivery disabled")
	}

	authService := service.NewAuthService(
		tx,
		userRepo,
		sessionRepo,
		verificationRepo,
		securityRepo,
		emailSender,
		passwordHasher,
		tokens,
		service.MFATokenIssuerJWT{Secret: []byte(cfg.JWTSecretKey), TTL: cfg.MFATokenTTL},
		service.NewTOTPProvider(cfg.MFAIssuer),
		clock,
		service.AuthConfig{
			OAuthSessionTTL:      cfg.OAuthSessionTTL,
			VerificationTokenTTL: cfg.VerificationTokenTTL,
			ResetTokenTTL:        cfg.ResetTokenTTL,
		},
		logger,
	)
	userService := service.NewUserService(tx, userRepo, sessionRepo, projectRepo, securityRepo, passwordHasher, logger)

	outbound := func(timeout time.Duration) *http.Client {
		return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	var providers []service.OAuthProvider
	github := service.OAuthClientConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  cfg.GitHubRedirectURI,
		HTTPClient:   outbound(cfg.OAuthTimeout),
	}
	if github.Enabled() {
		providers = append(providers, service.NewGitHubProvider(github))
	}
	google := service.OAuthClientConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		HTTPClient:   outbound(cfg.OAuthTimeout),
	}
	if google.Enabled() {
		providers = append(providers, service.NewGoogleProvider(google))
	}
	oauthService := service.NewOAuthService(authService, tx, userRepo, passwordHasher, logger, providers...)

	var generator service.TextGenerator
	gemini, err := service.NewGeminiGenerator(ctx, service.GeminiConfig{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		Timeout:    cfg.GeminiTimeout,
		HTTPClient: outbound(cfg.GeminiTimeout + 5*time.Second),
	})
	switch {
	case err != nil:
		logger.WithError(err).Warn("gemini client unavailable, code generation disabled")
	case gemini == nil:
		logger.Warn("GOOGLE_GEMINI_API_KEY not set, code generation disabled")
	default:
		generator = gemini
	}
	codegenService := service.NewCodegenService(generator, logger)

	var exportStore service.ExportStore
	if cfg.ExportStorageEnabled() {
		store, err := service.NewS3ExportStore(ctx, service.S3ExportConfig{
			Bucket:         cfg.ExportBucket,
			Endpoint:       cfg.S3Endpoint,
			Region:         cfg.S3Region,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			ForcePathStyle: cfg.S3ForcePath,
			URLTTL:         cfg.ExportURLTTL,
		})
		if err != nil {
			logger.WithError(err).Fatal("export storage")
		}
		exportStore = store
	}
	projectService := service.NewProjectService(
		tx,
		projectRepo,
		codegenService,
		exportStore,
		clock,
		service.ProjectConfig{
			PublicBaseURL: cfg.PublicBaseURL,
			Preview:       service.PreviewTokenSigner{Secret: cfg.PreviewKey(), TTL: cfg.PreviewURLTTL},
		},
		logger,
	)

	validate := validator.New()

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Debug = cfg.Debug
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status":     v.Status,
				"method":     v.Method,
				"uri":        v.URI,
				"ip":         v.RemoteIP,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	app.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept},
	}))
	app.Use(apiMiddleware.Metrics)

	router := &routes.Router{
		Echo:           app,
		System:         &handler.SystemHandler{DB: sqlDB, Version: version, Environment: cfg.Environment},
		Auth:           handler.NewAuthHandler(authService, validate),
		OAuth:          handler.NewOAuthHandler(oauthService, cfg.StateSecret(), cfg.SecureCookies),
		Users:          handler.NewUserHandler(userService, validate),
		Projects:       handler.NewProjectHandler(projectService, validate),
		Codegen:        handler.NewCodegenHandler(codegenService, projectService, validate),
		AuthMiddleware: apiMiddleware.AuthMiddleware{Auth: authService},
	}
	router.RegisterRoutes()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(app, "http.server"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":        cfg.HTTPAddr,
			"environment": cfg.Environment,
			"providers":   oauthService.Providers(),
			"codegen":     codegenService.Available(),
		}).Info("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Error("tracing shutdown")
	}
	if err := sqlDB.Close(); err != nil {
		logger.WithError(err).Error("database close")
	}
}
