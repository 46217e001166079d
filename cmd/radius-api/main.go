// Command radius-api serves the FreeRADIUS subscriber management API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/cybernazmul/freeradius-mikrotik-api/internal/coa"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/config"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/database"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/httpapi"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/middleware"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/storage"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/storage/memory"
	mysqlstore "github.com/cybernazmul/freeradius-mikrotik-api/internal/storage/mysql"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}

	var store storage.Repository
	switch cfg.Backend {
	case "memory":
		store = memory.New()
		log.Warn("using in-memory store, data will not survive restarts")
	default:
		db, err := database.Open(cfg.Database)
		if err != nil {
			log.WithError(err).Fatal("database connection failed")
		}
		defer db.Close()
		store = mysqlstore.New(db)
		log.WithFields(logrus.Fields{
			"host": cfg.Database.Host,
			"name": cfg.Database.Name,
		}).Info("connected to database")
	}

	disconnector := coa.NewDisconnector(cfg.CoA.Secret, cfg.CoA.Port, cfg.CoA.Timeout)

	handler := httpapi.NewHandler(store, disconnector, log)
	auth := middleware.NewBearerAuth(cfg.BearerToken, []string{"/", "/health"}, log)
	root := middleware.CORS(auth.Handler(handler))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("shutdown error")
			os.Exit(1)
		}
	}
	log.Info("server stopped")
}
