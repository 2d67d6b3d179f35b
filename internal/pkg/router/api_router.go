package router

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/rodrigomv/ticketpix/app/controllers"
	"github.com/rodrigomv/ticketpix/internal/pkg/constants"
	"github.com/rodrigomv/ticketpix/internal/pkg/env"
	"github.com/rodrigomv/ticketpix/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Rate limiting is backed by Redis so limits hold across instances.
	rateLimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	})

	// Payment lifecycle surface.
	app.Post(constants.ChargesRoute, rateLimiter, controllers.HandleCreateCharge)
	app.Get(constants.ChargeStatusRoute, rateLimiter, controllers.HandleChargeStatus)

	// Webhooks are never rate limited; dropping a provider notification
	// costs a reconciliation round trip.
	app.Post(constants.ProviderWebhookRoute, controllers.HandleProviderWebhook)

	// Operator surface.
	app.Post(constants.ReconcileRoute, middleware.OperatorAuthMiddleware(), controllers.HandleReconcile)

	api := app.Group("/api")
	v1 := api.Group("/v1")
	v1.Get(constants.StatsRoute, middleware.OperatorAuthMiddleware(), controllers.HandleStats)
}

func newLimiterStorage() *redis.Storage {
	return redis.New(redis.Config{
		URL:   fmt.Sprintf("redis://%s:%s/1", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Reset: false,
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
