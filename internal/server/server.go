package server

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/magcho/hedgedoc/internal/config"
	"github.com/magcho/hedgedoc/internal/domain"
	"github.com/magcho/hedgedoc/internal/handler"
	"github.com/magcho/hedgedoc/internal/middleware"
	"github.com/magcho/hedgedoc/internal/repository"
	"github.com/magcho/hedgedoc/internal/service"
	"github.com/magcho/hedgedoc/internal/telemetry"
	"github.com/magcho/hedgedoc/internal/validator"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const idempotencyTTL = 10 * time.Minute

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	// Backend is the single active storage backend, selected at startup.
	Backend domain.StorageBackend
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Initialize repositories
	mediaRepo := repository.NewMongoMediaRepository(deps.MongoDB)
	userRepo := repository.NewMongoUserRepository(deps.MongoDB)
	noteRepo := repository.NewMongoNoteRepository(deps.MongoDB)

	// Initialize services
	mediaService := service.NewMediaService(
		deps.Backend,
		mediaRepo,
		userRepo,
		noteRepo,
		validator.NewContentValidator(),
	)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(mediaService, userRepo, noteRepo, deps.Config.Server.MaxUploadSizeMB)

	app := fiber.New(fiber.Config{
		AppName:      "HedgeDoc Media API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB*1024*1024) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))
	if deps.Config.OTEL.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "hedgedoc-media",
		})
	})

	// API v1 routes
	v1 := app.Group("/v1")

	// Retrieval is public: upload ids are unguessable handles
	v1.Get("/media/:id", mediaHandler.GetMedia)

	authed := v1.Group("", middleware.VerifySessionToken(deps.Config.JWT.Secret))
	if deps.RedisClient != nil {
		authed.Use(middleware.Idempotency(deps.RedisClient, idempotencyTTL))
	}

	authed.Post("/media", mediaHandler.UploadMedia)
	authed.Delete("/media/:id", mediaHandler.DeleteMedia)
	authed.Delete("/media/:id/note", mediaHandler.DetachMedia)
	authed.Get("/me/media", mediaHandler.ListMyMedia)
	authed.Get("/notes/:id/media", mediaHandler.ListNoteMedia)
	authed.Delete("/notes/:id", mediaHandler.DeleteNote)

	return app
}

// customErrorHandler maps domain errors to HTTP statuses. Validation and
// lookup failures are client errors; everything else is an infra failure.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.Is(err, domain.ErrUnsupportedMediaType):
		code = fiber.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrUnidentifiableContent):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotInStore):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrArtifactMissing):
		// record exists but the content is gone from storage
		code = fiber.StatusGone
	case errors.Is(err, domain.ErrForbidden):
		code = fiber.StatusForbidden
	}

	if code == fiber.StatusInternalServerError {
		log.Printf("Error: %v", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
