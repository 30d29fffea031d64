package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// NewRouter - routes of the local presentation API.
func NewRouter(logger *slog.Logger, game controller) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	handlers := newHandlers(logger, game)

	router.GET("/ping", pingHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/game", handlers.GetGame)
	router.POST("/game/moves", handlers.PostMove)
	router.POST("/game/restart", handlers.PostRestart)

	router.GET("/profiles", handlers.GetProfiles)
	router.PUT("/profiles/:slot", handlers.PutProfileName)
	router.POST("/profiles/commit", handlers.PostCommitProfiles)

	return router
}

// Start - serves the API until ctx is canceled.
func Start(ctx context.Context, logger *slog.Logger, port string, game controller) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(logger, game),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
