// Package server wires the Fiber application: middleware, routes and the
// HTTP and WebSocket handlers of the API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "chirp/docs" // swagger docs
	"chirp/internal/auth"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/notifications"
	"chirp/internal/repository"
	"chirp/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// AuthService is the subset of service.AuthService used by the handlers.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// PostService is the subset of service.PostService used by the handlers.
type PostService interface {
	ListPosts(ctx context.Context, in service.ListPostsInput) ([]models.PostWithVotes, error)
	GetPost(ctx context.Context, id uint) (*models.PostWithVotes, error)
	CreatePost(ctx context.Context, user *models.User, in service.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, user *models.User, id uint, in service.PostInput) (*models.Post, error)
	DeletePost(ctx context.Context, user *models.User, id uint) error
}

// VoteService is the subset of service.VoteService used by the handlers.
type VoteService interface {
	Apply(ctx context.Context, user *models.User, in service.VoteInput) (string, error)
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	startedAt      time.Time
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	notifier       *notifications.Notifier
	feedHub        *notifications.FeedHub
	authService    AuthService
	postService    PostService
	voteService    VoteService
}

// NewServer connects to the database and Redis, then builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := notifications.Connect(context.Background(), cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, which disables events and the live feed.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.TokenLifetime())
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	tx := database.NewTransactor(db)
	notifier := notifications.NewNotifier(redisClient)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("chirp-api"),
		startedAt:      time.Now(),
		notifier:       notifier,
		authService:    service.NewAuthService(userRepo, auth.NewPasswordHasher(cfg.BcryptCost), tokens),
		postService:    service.NewPostService(postRepo, tx, notifier),
		voteService:    service.NewVoteService(postRepo, voteRepo, tx, notifier),
	}
	if notifier.Enabled() {
		server.feedHub = notifications.NewFeedHub()
	}
	server.shutdownCtx, server.shutdownFn = context.WithCancel(context.Background())

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	app.Get("/health/live", s.LivenessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// The feed holds its connection open, so it stays outside the request transaction.
	app.Get("/ws/feed", middleware.WebSocketAuthRequired(s.authService), s.FeedUpgrade, s.FeedWebSocket())

	uow := s.UnitOfWork()
	authRequired := middleware.AuthRequired(s.authService)

	app.Post("/users", uow, s.CreateUser)
	app.Get("/users/:id", uow, s.GetUser)
	app.Post("/login", uow, s.Login)

	posts := app.Group("/posts", uow, authRequired)
	posts.Get("/", s.GetPosts)
	posts.Post("/", s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	app.Post("/vote", uow, authRequired, s.Vote)
}

// NewApp builds the Fiber application with middleware and routes.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Chirp API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return models.RespondWithError(c, fiberErr.Code, fiberErr)
	}
	return respondError(c, err)
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()

	if s.feedHub != nil {
		if err := s.feedHub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start feed wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the feed subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}

	if s.feedHub != nil {
		if err := s.feedHub.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown feed hub: %w", err))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			errs = append(errs, fmt.Errorf("close database: %w", cerr))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", rerr))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
