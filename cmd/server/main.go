package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/course-planner-api/pkg/auth"
	"github.com/arnavshah/course-planner-api/pkg/config"
	"github.com/arnavshah/course-planner-api/pkg/database"
	"github.com/arnavshah/course-planner-api/pkg/handlers"
	"github.com/arnavshah/course-planner-api/pkg/maintenance"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}
	defer logger.Sync()

	if os.Getenv("GIN_MODE") == "" && !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	if err := auth.EnsureAdminExists(db, cfg.Auth, logger); err != nil {
		logger.Error("could not create admin user", zap.Error(err))
	}

	jobs, err := maintenance.Start(db, cfg.Maintenance, logger)
	if err != nil {
		logger.Fatal("could not schedule maintenance", zap.Error(err))
	}
	defer jobs.Stop()

	h := handlers.NewHandler(db, cfg, logger)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handlers.NewRouter(h),
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("could not run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Planner.Timeout.Duration+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
