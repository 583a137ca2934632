package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taskmaker/backend/internal/config"
	"taskmaker/backend/internal/logging"
	"taskmaker/backend/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Fatal("failed to load .env")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		logrus.WithError(err).Fatal("failed to set up logging")
	}

	switch {
	case cfg.Server.GinMode != "":
		gin.SetMode(cfg.Server.GinMode)
	case cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	}

	pool, err := server.OpenDatabase(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisCache := server.OpenRedis(ctx, cfg, log)
	if redisCache != nil {
		defer redisCache.Close()
	}

	srv := server.New(server.Dependencies{
		Config: cfg,
		Log:    log,
		Pool:   pool,
		Redis:  redisCache,
	})

	go func() {
		log.WithFields(logrus.Fields{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"redis":       redisCache != nil,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	if err := server.Shutdown(context.Background(), srv, cfg.Server); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
