package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/bsebcampus/campus-api/internal/auth"
	"github.com/bsebcampus/campus-api/internal/cache"
	"github.com/bsebcampus/campus-api/internal/config"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/http/handlers"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/bsebcampus/campus-api/internal/observability"
	"github.com/bsebcampus/campus-api/internal/repo/postgres"
	"github.com/bsebcampus/campus-api/internal/security"
	"github.com/bsebcampus/campus-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together. Files and AuthLimiter
// may be nil; the router falls back sensibly.
type Deps struct {
	Cfg         config.Config
	Log         *slog.Logger
	Pool        *pgxpool.Pool
	Prom        *observability.Prom
	Registry    *prometheus.Registry
	JWT         *auth.Manager
	Files       storage.Service
	AuthLimiter middlewares.Limiter
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSOrigins))
	r.Use(middlewares.RequireJSON())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("campus-api"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// health
	ping := func(ctx context.Context) error {
		if deps.Pool == nil {
			return nil
		}
		return deps.Pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(deps.Pool, deps.Prom)
	jobsRepo := postgres.NewJobsRepo(deps.Pool, deps.Prom)
	regRepo := postgres.NewRegistrationRepo(deps.Pool, usersRepo, jobsRepo)
	notesRepo := postgres.NewNotesRepo(deps.Pool, deps.Prom)
	discussionsRepo := postgres.NewDiscussionsRepo(deps.Pool, deps.Prom)

	// wire up handlers
	authHandler := handlers.NewAuthHandler(usersRepo, regRepo, jobsRepo, security.BcryptHasher{}, deps.JWT, deps.Prom, deps.Cfg)
	notesHandler := handlers.NewNotesHandler(notesRepo, deps.Files, cache.New(30*time.Second))
	discussionsHandler := handlers.NewDiscussionsHandler(discussionsRepo)

	am := middlewares.NewAuthMiddleware(deps.JWT)

	limiter := deps.AuthLimiter
	if limiter == nil {
		limiter = middlewares.NewRateLimiter(deps.Cfg.AuthRateLimit, deps.Cfg.AuthRateWindow)
	}
	authLimit := middlewares.RateLimitMiddleware(limiter, middlewares.KeyByIP)

	// credential endpoints
	authGroup := r.Group("/auth")
	authGroup.POST("/register", authLimit, authHandler.Register)
	authGroup.POST("/login", authLimit, authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/verify", authHandler.Verify)
	authGroup.GET("/me", am.RequireAuth(), authHandler.Me)
	authGroup.POST("/password", am.RequireAuth(), authHandler.ChangePassword)

	// notes, reads open, writes behind a session
	r.GET("/notes", notesHandler.List)
	r.GET("/notes/:id", notesHandler.Get)
	r.GET("/notes/:id/file", notesHandler.FileLink)
	r.POST("/notes", am.RequireAuth(), notesHandler.Create)
	r.PUT("/notes/:id", am.RequireAuth(), notesHandler.Update)
	r.DELETE("/notes/:id", am.RequireAuth(), notesHandler.Delete)
	r.POST("/notes/:id/like", am.RequireAuth(), notesHandler.Like)
	r.POST("/notes/:id/file", am.RequireAuth(), notesHandler.Upload)

	// discussions
	r.GET("/discussions", discussionsHandler.List)
	r.GET("/discussions/:id", discussionsHandler.Get)
	r.GET("/discussions/:id/replies", discussionsHandler.Replies)
	r.POST("/discussions", am.RequireAuth(), discussionsHandler.Create)
	r.POST("/discussions/:id/like", am.RequireAuth(), discussionsHandler.Like)
	r.POST("/discussions/:id/dislike", am.RequireAuth(), discussionsHandler.Dislike)
	r.DELETE("/discussions/:id", am.RequireAuth(), discussionsHandler.Delete)

	// admin surface
	admin := r.Group("/admin", am.RequireAuth(), am.RequireRole(user.RoleAdmin))
	admin.GET("/users/:id", authHandler.GetUser)

	return r
}
