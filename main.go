package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"pharmadesk/m/internal/api"
	"pharmadesk/m/internal/config"
	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/logging"
	"pharmadesk/m/internal/migrations"
	"pharmadesk/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	seed.EnsureAdmin(db, log, cfg.AdminEmail, cfg.AdminPassword)

	handler := api.New(db, cfg, log)

	// The browser frontend is served from a different origin.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(handler.Router())

	log.Info().Str("port", cfg.HTTPPort).Msg("pharmadesk server starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, corsHandler); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
