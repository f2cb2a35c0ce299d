package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/tavolo/tabletop-services/configs"
	"github.com/tavolo/tabletop-services/internal/apisvc/broker"
	"github.com/tavolo/tabletop-services/internal/apisvc/handlers"
	"github.com/tavolo/tabletop-services/internal/apisvc/service"
	"github.com/tavolo/tabletop-services/internal/apisvc/store"
	"github.com/tavolo/tabletop-services/internal/db"
	nats "github.com/tavolo/tabletop-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "api"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {

	// mongo connection
	database, cancelDb, err := db.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer cancelDb()
	log.Printf("mongo connection established successfully")

	db.EnsureIndexes(database)

	userStore := store.NewUserStore(database)
	guestStore := store.NewGuestStore(database)
	matchStore := store.NewMatchStore(database)
	notificationStore := store.NewNotificationStore(database)

	guestSyncService := service.NewGuestSyncService(matchStore, userStore)
	authService := service.NewAuthService(userStore, guestSyncService)
	userService := service.NewUserService(userStore, matchStore)
	guestService := service.NewGuestService(guestStore, matchStore, userStore)
	matchService := service.NewMatchService(matchStore, userStore)
	notificationService := service.NewNotificationService(notificationStore, userStore)

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(authService, userService, guestService, guestSyncService, matchService, notificationService, b)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("API_SERVICE_PORT"),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
