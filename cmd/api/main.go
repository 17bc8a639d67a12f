package main

import (
	"context"
	"os"

	"github.com/scholarstream/api/internal/pkg/logger"
	"github.com/scholarstream/api/internal/server"
)

// @title ScholarStream API
// @version 1.0
// @description Scholarship listings, reviews, applications and application fee payments

// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Firebase ID token, sent as "Bearer <token>"

func main() {
	srv, err := server.NewServer(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
