package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"guestlist-backend/config"
	"guestlist-backend/controllers"
	"guestlist-backend/routes"
	"guestlist-backend/services"
	"guestlist-backend/utils"
)

func main() {
	// Load .env (optional)
	envErr := godotenv.Load()

	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.Debug().Msg(".env not found; using process environment")
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}

	// Signup, manual adds and imports share one lock table so per-event
	// admission stays serialized across all three.
	locks := utils.NewKeyedMutex()
	phone := utils.NewPhoneNormalizer(cfg.DefaultCountryPrefix)

	userService := services.NewUserService(db)
	if err := userService.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("admin seed failed")
	}

	signupService := services.NewSignupService(db, locks, phone)
	checkInService := services.NewCheckInService(db, locks)
	guestService := services.NewGuestService(db, locks, phone)
	importService := services.NewImportService(db, locks, phone)
	linkService := services.NewLinkService(db)
	eventService := services.NewEventService(db)

	router := routes.SetupRouter(routes.Controllers{
		Signup: controllers.NewSignupController(signupService),
		Door:   controllers.NewDoorController(checkInService),
		Guest:  controllers.NewGuestController(guestService, importService),
		Link:   controllers.NewLinkController(linkService),
		Event:  controllers.NewEventController(eventService),
		User:   controllers.NewUserController(userService),
	}, userService, cfg.CorsOrigins)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
