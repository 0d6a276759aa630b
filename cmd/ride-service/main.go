package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ride-backend/internal/ride/consumer"
	"ride-backend/internal/ride/handler"
	"ride-backend/internal/ride/messaging"
	"ride-backend/internal/ride/repository"
	"ride-backend/internal/ride/service"
	"ride-backend/pkg/auth"
	"ride-backend/pkg/config"
	"ride-backend/pkg/db"
	"ride-backend/pkg/logger"
	"ride-backend/pkg/rabbitmq"
	"ride-backend/pkg/websocket"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.NewLogger("ride-service")
	log.Info("service_starting", fmt.Sprintf("Ride service starting on port %d", cfg.HTTP.Port))

	ctx := context.Background()

	dbConn, err := db.NewConnection(ctx, cfg, log)
	if err != nil {
		log.Error("db_connect_failed", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	rabbit, err := rabbitmq.NewConnection(cfg, log)
	if err != nil {
		log.Error("rabbitmq_connect_failed", err)
		os.Exit(1)
	}
	defer rabbit.Close()

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	hub := websocket.NewHub(log)

	rideRepo := repository.NewPostgresRideRepository(dbConn, cfg.Ride.LockTimeout)
	publisher := messaging.NewRabbitMQEventPublisher(rabbit, log)

	createRide := service.NewCreateRideUseCase(rideRepo, publisher, log)
	changeStatus := service.NewChangeStatusUseCase(rideRepo, publisher, log)
	getRide := service.NewGetRideUseCase(rideRepo, log)
	tripDetails := service.NewUpdateTripDetailsUseCase(rideRepo, log)

	h := handler.New(createRide, changeStatus, getRide, tripDetails, hub, log)

	statusConsumer := consumer.New(rabbit, hub, log)
	if err := statusConsumer.Start(); err != nil {
		log.Error("consumer_start_failed", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.Health)

	protect := jwtManager.AuthMiddleware
	mux.Handle("POST /rides", protect(http.HandlerFunc(h.CreateRide)))
	mux.Handle("GET /rides/{ride_id}", protect(http.HandlerFunc(h.GetRide)))
	mux.Handle("GET /rides/{ride_id}/history", protect(http.HandlerFunc(h.GetHistory)))
	mux.Handle("POST /rides/{ride_id}/status", protect(http.HandlerFunc(h.ChangeStatus)))
	mux.Handle("PATCH /rides/{ride_id}", protect(http.HandlerFunc(h.UpdateTripDetails)))
	mux.Handle("GET /ws", protect(http.HandlerFunc(h.WebSocket)))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server_failed", err)
			os.Exit(1)
		}
	}()
	log.Info("service_started", "Ride service is accepting requests")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("service_stopping", "Shutting down ride service")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", err)
	}
	log.Info("service_stopped", "Ride service stopped")
}
