package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicbook/config"
	"clinicbook/cron"
	"clinicbook/handlers"
	"clinicbook/middleware"
	"clinicbook/models"
	"clinicbook/routes"
	"clinicbook/services/booking"
	"clinicbook/services/schedulingapi"
	"clinicbook/services/tasks"
	"clinicbook/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitSessionCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	backend := schedulingapi.NewClient(
		config.AppConfig.SchedulingAPIBaseURL,
		time.Duration(config.AppConfig.SchedulingAPITimeoutMS)*time.Millisecond,
	)

	notifyQueue := tasks.NewAsynqNotificationQueue()
	defer notifyQueue.Close()

	sessionStore := booking.NewRedisSessionStore(utils.GetSessionCacheClient(), config.SessionTTL())

	flowService := &booking.DefaultFlowSessionService{
		Backend:          backend,
		Store:            sessionStore,
		NotifyQueue:      notifyQueue,
		Evaluator:        booking.NewConstraintEvaluator(config.ClinicLocation()),
		ClinicID:         config.AppConfig.ClinicID,
		Variant:          models.FlowVariant(config.AppConfig.FlowVariant),
		AllowRetreat:     config.AppConfig.AllowRetreat,
		MultiSlotEnabled: config.AppConfig.MultiSlotEnabled,
	}

	bookingHandler := handlers.NewBookingHandler(flowService, logger)
	routes.RegisterRoutes(router, bookingHandler)

	cron.InitNotifyWorker(backend)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
