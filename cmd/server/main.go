package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"yuri/internal/app"
	"yuri/internal/auth"
	"yuri/internal/handler"
	"yuri/internal/middleware"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Printf("server: %v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup (store pool, log file,
// JWKS refresh) always runs.
func run(ctx context.Context) error {
	a, err := app.New(ctx, "server")
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer a.Close()
	cfg, logger := a.Config, a.Logger

	jwtVerifier, err := auth.NewJWTVerifier(ctx, cfg.JWKSURL, logger)
	if err != nil {
		return fmt.Errorf("create JWT verifier: %w", err)
	}
	defer jwtVerifier.Close()

	a.StartRetention(ctx)

	mux := http.NewServeMux()
	handler.Routes(mux,
		handler.NewReplyHandler(a.Replies, logger),
		handler.NewAdminHandler(a.Admin, logger),
	)

	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(jwtVerifier, logger, "/health")(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Reply generation can walk the whole waterfall, so the write timeout
	// leaves room for several generation budgets.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * cfg.GenerationTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
