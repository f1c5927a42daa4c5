package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yukikurage/volunteer-api/internal/config"
	"github.com/yukikurage/volunteer-api/internal/metrics"
	"github.com/yukikurage/volunteer-api/internal/middleware"
	"github.com/yukikurage/volunteer-api/internal/services"
	"github.com/yukikurage/volunteer-api/internal/storage"
)

// RouterDeps is everything the HTTP layer is built from.
type RouterDeps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Auth       *services.AuthService
	Units      *services.UnitService
	Tasks      *services.TaskService
	Ledger     *services.LedgerService
	Volunteers *services.VolunteerService
	Storage    storage.Storage
	Metrics    metrics.Recorder
	// Gatherer backs GET /metrics; the endpoint is omitted when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter wires the API routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	// Client IPs feed the rate limiter, so forwarding headers count only from known proxies.
	trustForwarded := len(cfg.TrustedProxies) > 0
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error("ignoring invalid trusted proxies", slog.Any("error", err))
		_ = r.SetTrustedProxies(nil)
		trustForwarded = false
	}

	media := Media{
		Store:          deps.Storage,
		BaseURL:        cfg.BaseURL,
		TrustForwarded: trustForwarded,
	}
	maxUpload := cfg.MaxUploadBytes()

	authHandler := NewAuthHandler(deps.Auth, rec)
	unitHandler := NewUnitHandler(deps.Units)
	taskHandler := NewTaskHandler(deps.Tasks, deps.Ledger, media, maxUpload, rec)
	volunteerHandler := NewVolunteerHandler(deps.Volunteers, taskHandler, media, maxUpload, rec)

	requireAuth := middleware.RequireAuth(deps.Auth)
	requireVolunteer := middleware.RequireVolunteer(deps.Volunteers)
	requireStaff := middleware.RequireStaff()
	authLimit := middleware.NewRateLimiter(cfg.RateLimitAuthPerMinute).Middleware()

	r.MaxMultipartMemory = maxUpload
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics(rec))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Volunteer API is running",
		})
	})
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}
	if cfg.MediaURL != "" && cfg.MediaDir != "" {
		r.Static(cfg.MediaURL, cfg.MediaDir)
	}

	api := r.Group("/api")
	{
		// Token routes (public, rate limited)
		token := api.Group("/token")
		token.Use(authLimit)
		{
			token.POST("", authHandler.Login)
			token.POST("/refresh", authHandler.Refresh)
			token.POST("/link/:code", authHandler.LoginByLink)
		}

		api.GET("/auth/me", requireAuth, authHandler.Me)
		api.GET("/links/:code", unitHandler.ResolveLink)

		units := api.Group("/units")
		{
			units.POST("", requireAuth, requireStaff, unitHandler.CreateUnit)
			units.GET("", requireAuth, unitHandler.ListMyUnits)
			units.GET("/:id", unitHandler.GetUnit)
			units.POST("/:id/links", requireAuth, unitHandler.CreateLink)
			units.GET("/:id/links", requireAuth, unitHandler.ListLinks)
		}

		tasks := api.Group("/tasks")
		{
			tasks.GET("", middleware.OptionalAuth(deps.Auth), taskHandler.ListTasks)
			tasks.POST("", requireAuth, requireStaff, taskHandler.CreateTask)
			tasks.POST("/generate", requireAuth, requireStaff, taskHandler.GenerateTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", requireAuth, taskHandler.UpdateTask)
			tasks.GET("/:id/comments", taskHandler.ListComments)
			tasks.POST("/:id/comments", requireAuth, requireVolunteer, taskHandler.AddComment)
		}

		my := api.Group("/my")
		{
			my.POST("", authLimit, volunteerHandler.Redeem)
			my.GET("", requireAuth, volunteerHandler.Profile)
			my.PUT("/avatar", requireAuth, volunteerHandler.UpdateAvatar)
			my.GET("/tasks", requireAuth, requireVolunteer, volunteerHandler.ListMyTasks)
			my.POST("/tasks/:id", requireAuth, requireVolunteer, volunteerHandler.MarkComplete)
			my.DELETE("/tasks/:id", requireAuth, requireVolunteer, volunteerHandler.RevokeCompletion)
		}

		api.GET("/volunteers", volunteerHandler.Rank)
	}

	return r
}
