package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/bintangula23/kindbox/config"
	"github.com/bintangula23/kindbox/internal/auth"
	"github.com/bintangula23/kindbox/internal/cache"
	"github.com/bintangula23/kindbox/internal/donation"
	"github.com/bintangula23/kindbox/internal/images"
	"github.com/bintangula23/kindbox/internal/ratings"
	"github.com/bintangula23/kindbox/internal/store/firestore"
	"github.com/bintangula23/kindbox/internal/token"
	"github.com/bintangula23/kindbox/internal/users"
	"github.com/bintangula23/kindbox/internal/web/handlers"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("kindbox-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	if cfg.JWT.SigningKey == "" {
		log.Println("WARNING: JWT_SIGNING_KEY is empty — generating an ephemeral key (sessions will not survive restarts)")
		key, err := token.GenerateSigningKey()
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}
		cfg.JWT.SigningKey = key
	}

	if cfg.Firebase.UseEmulator {
		os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firebase.EmulatorFirestoreHost)
		os.Setenv("FIREBASE_AUTH_EMULATOR_HOST", cfg.Firebase.EmulatorAuthHost)
		log.Printf("Using Firebase emulators (auth: %s, firestore: %s)",
			cfg.Firebase.EmulatorAuthHost, cfg.Firebase.EmulatorFirestoreHost)
	}

	ctx := context.Background()

	// Initialize the document store.
	st, err := firestore.New(ctx, cfg.Firebase.ProjectID, cfg.Firebase.FirestoreDatabase, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize document store: %v", err)
	}
	defer st.Close()

	// Initialize sign-in token verification.
	verifier, err := auth.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	// Optional read mirror for listing queries.
	var mirror donation.Mirror
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("Redis unavailable, continuing without read mirror: %v", err)
		} else {
			mirror = cache.NewMirror(rdb)
			log.Printf("Read mirror enabled (%s)", cfg.Redis.Addr)
		}
	}

	// Optional image upload signing.
	var uploader images.Uploader
	if cfg.S3.Bucket != "" {
		s3up, err := images.NewS3(ctx, images.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize image uploads: %v", err)
		}
		uploader = s3up
	}

	// Initialize services.
	donations := donation.New(st, mirror)
	ratingSvc := ratings.New(st, donations)
	userSvc := users.New(st, ratingSvc)
	tokens := token.New(cfg.JWT.SigningKey, cfg.JWT.Issuer, time.Duration(cfg.JWT.TTLMinutes)*time.Minute)

	h := handlers.New(cfg, donations, userSvc, ratingSvc, verifier, tokens, uploader)

	// Initialize router.
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check.
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		// Public routes.
		r.Post("/auth/session", h.CreateSession)
		r.Get("/donations", h.ListDonations)
		r.Get("/donations/{id}", h.GetDonation)
		r.Get("/users/{id}", h.GetProfile)
		r.Get("/users/{id}/donations", h.UserDonations)
		r.Get("/users/{id}/interests", h.UserInterests)

		// Protected routes (session token required).
		r.Group(func(r chi.Router) {
			r.Use(handlers.AuthMiddleware(tokens))
			r.Use(handlers.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst))

			r.Post("/donations", h.CreateDonation)
			r.Put("/donations/{id}", h.UpdateDonation)
			r.Delete("/donations/{id}", h.DeleteDonation)
			r.Post("/donations/{id}/interest", h.ExpressInterest)
			r.Post("/donations/{id}/verify", h.VerifyRecipient)
			r.Post("/donations/{id}/reject", h.RejectRecipient)

			r.Put("/users/me", h.UpdateMe)
			r.Post("/ratings", h.SubmitRating)
			r.Post("/images/presign", h.PresignUpload)
		})
	})

	// Start server.
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("KindBox server starting on %s (env: %s)", addr, cfg.Server.Env)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
