package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/rodrigomv/ticketpix/app/repository"
	"github.com/rodrigomv/ticketpix/internal/pkg/cache"
	"github.com/rodrigomv/ticketpix/internal/pkg/database"
	"github.com/rodrigomv/ticketpix/internal/pkg/env"
	"github.com/rodrigomv/ticketpix/internal/pkg/reconcile"
	"github.com/rodrigomv/ticketpix/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Shut the reconciliation manager down cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		reconcile.GetManager().Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "ticketpix",
		BodyLimit: 1 << 20, // webhook and checkout payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app)

	// periodic pull against provider truth; the safety net for lost
	// webhooks
	reconcile.GetManager().Start()

	return app
}
