package main

import (
	"context"
	"log"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"saascore/internal/caching"
	"saascore/internal/config"
	"saascore/internal/handlers"
	"saascore/internal/jobs/background"
	"saascore/internal/middleware"
	"saascore/internal/providers"
	"saascore/internal/providers/local"
	_ "saascore/internal/providers/supabase"
	"saascore/internal/repositories"
	"saascore/internal/services"
	"saascore/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pool, err := database.NewPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Create repositories
	userRepo := repositories.NewUserRepo(pool)
	orgRepo := repositories.NewOrganizationRepo(pool)
	membershipRepo := repositories.NewMembershipRepo(pool)
	sessionRepo := repositories.NewSessionRepo(pool)
	auditLogsRepo := repositories.NewAuditLogsRepo(pool)

	// Create cache service
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// The supabase provider registers itself; the local provider needs the
	// user repository injected, so its factory is registered here.
	providers.Register("custom", local.NewFactory(userRepo))

	provider, err := providers.Create(cfg.AuthProvider, cfg.ProviderConfig)
	if err != nil {
		log.Fatalf("Failed to create auth provider %q: %v", cfg.AuthProvider, err)
	}
	log.Printf("Auth provider: %s (available: %v)", cfg.AuthProvider, providers.Default.Available())

	// Create services
	sessionSvc := services.NewSessionService(sessionRepo, cacheSvc, cfg.JWTSecret,
		cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	orgSvc := services.NewOrganizationService(orgRepo)
	membershipSvc := services.NewMembershipService(membershipRepo, userRepo)
	auditSvc := services.NewAuditLogsService(auditLogsRepo)
	authSvc := services.NewAuthService(provider, userRepo, membershipRepo, orgSvc, sessionSvc)

	storageSvc, err := services.NewStorageService(cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize storage service: %v", err)
	}
	if err := storageSvc.EnsureBucket(context.Background()); err != nil {
		log.Printf("WARN: could not ensure storage bucket: %v", err)
	}

	// Create handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, auditSvc)
	orgHandlers := handlers.NewOrganizationHandlers(orgSvc, storageSvc)
	membershipHandlers := handlers.NewMembershipHandlers(membershipSvc)
	auditHandlers := handlers.NewAuditLogsHandlers(auditSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc, provider, version)

	membershipMiddleware := middleware.NewMembershipMiddleware(membershipSvc)
	auditMiddleware := middleware.NewAuditMiddleware(auditSvc)

	// Create Echo instance
	e := echo.New()

	// Global middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")

	// Authentication routes (no session required)
	auth := v1.Group("/auth")
	auth.POST("/signup", authHandlers.Signup)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/password-reset", authHandlers.RequestPasswordReset)
	auth.POST("/password-reset/complete", authHandlers.CompletePasswordReset)

	// Protected routes (require a valid session)
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(sessionSvc))

	protected.GET("/me", authHandlers.Me)
	protected.POST("/auth/logout", authHandlers.Logout)
	protected.POST("/auth/switch-organization", authHandlers.SwitchOrganization)
	protected.POST("/memberships/:id/accept", membershipHandlers.Accept)

	// Organization-scoped routes additionally require a membership predicate.
	org := protected.Group("/organization")
	org.Use(auditMiddleware.AuditMutations("organization"))
	org.GET("", orgHandlers.Get, membershipMiddleware.RequirePermission(middleware.PermissionRead))
	org.PUT("", orgHandlers.Update, membershipMiddleware.RequirePermission(middleware.PermissionWrite))
	org.DELETE("", orgHandlers.Delete, membershipMiddleware.RequirePermission(middleware.PermissionManageUsers))
	org.POST("/logo", orgHandlers.UploadLogo, membershipMiddleware.RequirePermission(middleware.PermissionWrite))

	org.GET("/members", membershipHandlers.List, membershipMiddleware.RequirePermission(middleware.PermissionRead))
	org.POST("/members", membershipHandlers.Invite, membershipMiddleware.RequirePermission(middleware.PermissionManageUsers))
	org.PUT("/members/:id", membershipHandlers.ChangeRole, membershipMiddleware.RequirePermission(middleware.PermissionManageUsers))
	org.DELETE("/members/:id", membershipHandlers.Remove, membershipMiddleware.RequirePermission(middleware.PermissionManageUsers))

	org.GET("/audit-logs", auditHandlers.List, membershipMiddleware.RequirePermission(middleware.PermissionManageUsers))

	// Background jobs
	scheduler := background.NewJobScheduler(sessionSvc, cacheSvc, cfg.SessionSweepInterval)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	log.Printf("saascore server v%s starting on port %s", version, cfg.Port)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
