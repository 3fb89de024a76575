package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"poi-server/handlers"
	"poi-server/middleware"
	"poi-server/services"
	"poi-server/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatal("MONGODB_URI environment variable is not set")
	}
	mongoDB := os.Getenv("MONGODB_DB")
	if mongoDB == "" {
		mongoDB = "poi_db"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store
	docStore, err := store.NewMongoStore(ctx, mongoURI, mongoDB)
	if err != nil {
		log.Fatalf("MongoDB connection failed: %v", err)
	}

	// Redis: role cache + geo index
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		log.Fatal("REDIS_ADDR environment variable is not set")
	}
	redisDB, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		log.Fatalf("Invalid REDIS_DB value: %v", err)
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr, DB: redisDB})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	cascadeLikes := os.Getenv("CASCADE_LIKE_DELETE") == "true"

	// Services
	authService := services.NewAuthService(docStore, jwtSecret)
	registry := services.NewRegistryService(docStore, cascadeLikes)
	ledger := services.NewLedgerService(docStore, authService)
	roleService := services.NewRoleService(docStore, redisClient, authService)
	roleService.Start()
	defer roleService.Close()

	geoService := services.NewGeoService(redisClient, registry)
	if err := geoService.Start(ctx); err != nil {
		log.Fatalf("Failed to start geo index: %v", err)
	}
	defer geoService.Close()

	// Periodic like-counter reconciliation; 0 disables the loop but the
	// admin endpoint stays available.
	reconcileInterval := 10 * time.Minute
	if v := os.Getenv("RECONCILE_INTERVAL"); v != "" {
		reconcileInterval, err = time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid RECONCILE_INTERVAL value: %v", err)
		}
	}
	reconciler := services.NewReconcilerService(docStore, reconcileInterval)
	if reconcileInterval > 0 {
		go reconciler.Run(ctx)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	poiHandler := handlers.NewPOIHandler(registry, geoService, roleService)
	likeHandler := handlers.NewLikeHandler(ledger, registry)
	roleHandler := handlers.NewRoleHandler(roleService)
	watchHandler := handlers.NewWatchHandler(registry)
	adminHandler := handlers.NewAdminHandler(reconciler, roleService)

	r := mux.NewRouter()

	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
	r.Use(middleware.CORSMiddleware(allowedOrigins))
	r.Use(middleware.ErrorMiddleware())

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.RegisterUser).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", authHandler.LoginUser).Methods("POST", "OPTIONS")

	// Public POI routes
	r.HandleFunc("/pois", poiHandler.ListPOIs).Methods("GET", "OPTIONS")
	r.HandleFunc("/pois/nearby", poiHandler.GetNearbyPOIs).Methods("GET", "OPTIONS")
	r.HandleFunc("/pois/watch", watchHandler.WatchPOIs).Methods("GET")

	// Authenticated routes
	authed := r.NewRoute().Subrouter()
	authed.Use(middleware.JWTMiddleware(jwtSecret))
	authed.HandleFunc("/auth/logout", authHandler.LogoutUser).Methods("POST", "OPTIONS")
	authed.HandleFunc("/pois", poiHandler.CreatePOI).Methods("POST", "OPTIONS")
	authed.HandleFunc("/pois/{id}", poiHandler.DeletePOI).Methods("DELETE", "OPTIONS")
	authed.HandleFunc("/likes", likeHandler.ListLikes).Methods("GET", "OPTIONS")
	authed.HandleFunc("/likes", likeHandler.LikePOI).Methods("POST", "OPTIONS")
	authed.HandleFunc("/likes/{poiId}", likeHandler.UnlikePOI).Methods("DELETE", "OPTIONS")
	authed.HandleFunc("/me/role", roleHandler.GetMyRole).Methods("GET", "OPTIONS")
	authed.HandleFunc("/admin/reconcile", adminHandler.Reconcile).Methods("POST", "OPTIONS")

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	log.Println("Server starting on", listenAddr)
	log.Fatal(http.ListenAndServe(listenAddr, r))
}
