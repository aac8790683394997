package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/course-planner-api/pkg/auth"
	"github.com/arnavshah/course-planner-api/pkg/config"
	"github.com/arnavshah/course-planner-api/pkg/database"
	"github.com/arnavshah/course-planner-api/pkg/handlers"
)

var r *gin.Engine

func init() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("could not create logger: %v", err)
	}

	db, err := database.InitDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	_ = auth.EnsureAdminExists(db, cfg.Auth, logger)

	// no cron here: serverless instances do not live long enough to run it
	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(handlers.NewHandler(db, cfg, logger))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
