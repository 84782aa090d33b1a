package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dresperanto/studio-flora/internal/events"
	"github.com/dresperanto/studio-flora/internal/orders"
	"github.com/dresperanto/studio-flora/internal/storage"
	"github.com/dresperanto/studio-flora/internal/websocket"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	// Database configuration
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "studioflora")
	dbPassword := getEnv("DB_PASSWORD", "studioflora")
	dbName := getEnv("DB_NAME", "orders")

	// Optional collaborators; empty value disables the integration.
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")
	redisAddr := getEnv("REDIS_ADDR", "")

	port := getEnv("ORDER_SERVICE_PORT", "8080")

	ctx := context.Background()

	// Connect to database
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Wait for database to be ready
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			logger.Info("Database connection established")
			break
		}
		logger.Info("Waiting for database...")
		time.Sleep(2 * time.Second)
	}

	store := storage.NewPostgresStore(db)
	if err := store.CreateTables(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to create tables")
	}

	handler := orders.NewHandler(store, logger)

	if kafkaBrokers != "" {
		producer, err := events.NewKafkaProducer(kafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
		handler.SetEventPublisher(producer)
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	if redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer redisClient.Close()
		handler.SetSubmissionGuard(storage.NewRedisSubmissionGuard(redisClient))
	} else {
		logger.Warn("REDIS_ADDR not set, duplicate-submission guard disabled")
	}

	// Live order feed for the shop dashboard
	hub := websocket.NewHub(logger)
	go hub.Run()
	handler.SetWebSocketHub(hub)

	// Set up routes
	router := mux.NewRouter()
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	router.HandleFunc("/api/orders", handler.SubmitOrder).Methods("POST")
	router.HandleFunc("/api/orders", handler.ListOrders).Methods("GET")
	router.HandleFunc("/api/orders/{id}", handler.GetOrder).Methods("GET")
	router.HandleFunc("/api/orders/{id}/status", handler.UpdateOrderStatus).Methods("PUT")
	router.HandleFunc("/ws", hub.HandleWebSocket)

	// Middleware
	router.Use(loggingMiddleware(logger))

	// Create server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.WithField("port", port).Info("Starting order service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).Milliseconds(),
			}).Info("Request completed")
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
