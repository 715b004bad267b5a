package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/database"
	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/ws"
)

// Dependencies are owned by the caller; the router only mounts them.
type Dependencies struct {
	Service   handler.EnrollmentService
	Hub       *ws.Hub
	DB        database.Pinger
	RateLimit middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Rekko Enrollment API",
		BodyLimit:    6 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	var db database.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	if r.deps == nil || r.deps.Service == nil {
		return
	}

	v1 := r.app.Group("/v1")

	r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
	v1.Use(r.rateLimiter.Handler())

	enrollmentHandler := handler.NewEnrollmentHandler(r.deps.Service, r.logger)

	v1.Post("/start-enrollment", enrollmentHandler.StartEnrollment)
	v1.Post("/enroll-frame", enrollmentHandler.EnrollFrame)
	v1.Post("/complete", enrollmentHandler.Complete)
	v1.Post("/cancel-enrollment", enrollmentHandler.Cancel)
	v1.Get("/sessions/:id", enrollmentHandler.GetSession)

	if r.deps.Hub != nil {
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
