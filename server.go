package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/allocation_backend/config"
	"github.com/mmdatafocus/allocation_backend/middlewares"
	"github.com/mmdatafocus/allocation_backend/models"
	"github.com/mmdatafocus/allocation_backend/models/reports"
	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("allocation-backend")

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// seedLoader returns the snapshot source for sessions created without a body.
func seedLoader(path string) func() (*models.AllocationState, error) {
	if path == "" {
		return func() (*models.AllocationState, error) {
			return models.DefaultSnapshot(), nil
		}
	}
	return func() (*models.AllocationState, error) {
		return reports.LoadSeedFile(path)
	}
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	if config.IsProduction() {
		if origins := utils.SplitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")); len(origins) > 0 {
			corsConfig.AllowOrigins = origins
		} else {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", middlewares.CorrelationIdHeader, middlewares.OperatorHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	return corsConfig
}

func newRouter(h *allocationHandlers, logger *logrus.Logger, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(corsConfig()))
	r.Use(extra...)
	r.Use(middlewares.OperatorMiddleware())
	r.Use(middlewares.CustomErrorLogger(logger))
	r.Use(gin.Recovery())

	h.register(r)
	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	seedPath := config.SeedFile()
	if seedPath != "" {
		if _, err := reports.LoadSeedFile(seedPath); err != nil {
			logger.WithFields(logrus.Fields{"field": "seed", "path": seedPath}).Fatal("invalid seed file: " + err.Error())
		}
	}

	policy := models.AllocationPolicy{RunningCustomerCredit: config.RunningCustomerCredit()}
	store := models.NewSessionStore(policy, logger)
	handlers := newAllocationHandlers(store, seedLoader(seedPath), logger)

	var extra []gin.HandlerFunc
	if config.RateLimitEnabled() {
		if err := config.ConnectRedis(sigCtx); err != nil {
			logger.WithFields(logrus.Fields{"field": "redis"}).Warn("rate limiting disabled (redis not ready): " + err.Error())
		} else {
			limiter := middlewares.NewRateLimiter(config.GetRedisDB(), config.RateLimitMaxRequests(), config.RateLimitWindow(), logger)
			extra = append(extra, limiter.RateLimitMiddleware)
		}
	}
	defer config.CloseRedis()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(handlers, logger, extra...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"info":           "Server Started",
		"running_credit": policy.RunningCustomerCredit,
		"seed":           seedPath,
	}).Info("allocation api listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}
