package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/reviselabs/revise/internal/config"
	"github.com/reviselabs/revise/internal/db"
	"github.com/reviselabs/revise/internal/httpapi"
	"github.com/reviselabs/revise/internal/store/rabbitmq"
	"github.com/reviselabs/revise/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDriver, cfg.DBDSN)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()
	if err := rds.Ping(context.Background()); err != nil {
		logrus.WithError(err).Warn("redis unavailable, cache and token blacklist disabled")
	}

	var rabbit *rabbitmq.Publisher
	if p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		logrus.WithError(err).Warn("rabbitmq unavailable, click analytics disabled")
	} else {
		rabbit = p
		defer rabbit.Close()
	}

	router := httpapi.NewRouter(gdb, cfg, rds, rabbit)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("listen failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("shutdown failed")
	}
}
