package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"ticketing/src/boot"
	"ticketing/src/config"
	"ticketing/src/middlewares"
	"ticketing/src/services"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const (
	apiPrefix string = "/api/v1"
)

func setupRouter(db *gorm.DB, svc *services.Services, cfg *config.Config) *gin.Engine {
	router := gin.Default()
	if cfg.Env == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowOrigins = cfg.CORSOrigins
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
		cc.AllowCredentials = true
		router.Use(cors.New(cc))
	}

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware(db, cfg.JWTSecret))
	{
		eventHandlers(authorized, db)
		bookingHandlers(authorized, svc)
		reservationHandlers(authorized, svc)
		ticketHandlers(authorized, svc)
		transactionHandlers(authorized, svc)
	}

	admin := router.Group(apiPrefix + "/admin")
	admin.Use(middlewares.AuthMiddleware(db, cfg.JWTSecret), middlewares.AdminOnly)
	{
		admissionHandlers(admin, svc)
		adminHandlers(admin, db, svc, cfg.RefundAutoCompleteDays)
	}
	return router
}

func initLogger(dir string) {
	cwd, _ := os.Getwd()
	logDir := path.Join(cwd, dir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Printf("Could not create log directory: %s\n", err.Error())
		return
	}
	gin.DefaultWriter = io.MultiWriter(&lumberjack.Logger{
		Filename:   path.Join(logDir, "api.log"),
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}, os.Stdout)
	log.SetOutput(io.MultiWriter(&lumberjack.Logger{
		Filename:   path.Join(logDir, "server.log"),
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}, os.Stderr))
}

func main() {
	if os.Getenv("API_ENV") == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env loaded: %s\n", err.Error())
		}
	}
	cfg := config.Load()
	initLogger(cfg.LogDir)

	db, err := boot.InitDb()
	if err != nil {
		log.Fatalf("error initializing database: %s", err.Error())
	}
	svc := services.New(db, services.Options{
		QRSecret:               cfg.QRSecret,
		ReservationHold:        cfg.ReservationHold,
		RefundAutoCompleteDays: cfg.RefundAutoCompleteDays,
		Notifier:               boot.InitNotifier(cfg),
	})

	sched, err := boot.InitScheduler(cfg, svc)
	if err != nil {
		log.Fatalf("error starting scheduler: %s", err.Error())
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: setupRouter(db, svc, cfg).Handler(),
	}
	go func() {
		log.Printf("Listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %s\n", err.Error())
	}
	boot.StopScheduler(sched)
	svc.Drain()
}
