package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"tripmate-core/internal/database"
	"tripmate-core/internal/handlers"
	"tripmate-core/internal/middleware"
	"tripmate-core/internal/services/auth"
	"tripmate-core/internal/services/location"
	"tripmate-core/internal/services/maps"
	"tripmate-core/internal/services/trip"
	"tripmate-core/internal/websocket"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 TRIPMATE CORE DAEMON STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	if os.Getenv("APP_JWT_SECRET") == "" {
		log.Fatal("❌ FATAL ERROR: APP_JWT_SECRET environment variable is required")
	}

	ctx := context.Background()

	// Initialize the Firebase app backing both identity and the document store.
	// Supports a file path or base64-encoded credentials (for cloud deployments).
	log.Println("🔌 Initializing Firebase...")
	var creds option.ClientOption
	if credsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); credsBase64 != "" {
		credsJSON, err := base64.StdEncoding.DecodeString(credsBase64)
		if err != nil {
			log.Fatalf("❌ FATAL ERROR: invalid FIREBASE_CREDENTIALS_BASE64: %v", err)
		}
		creds = option.WithCredentialsJSON(credsJSON)
	} else {
		credsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
		if credsFile == "" {
			credsFile = "./firebase-service-account.json"
		}
		creds = option.WithCredentialsFile(credsFile)
	}

	app, err := firebase.NewApp(ctx, nil, creds)
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: Firebase initialization failed: %v", err)
	}

	firestoreClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: Firestore client failed: %v", err)
	}
	defer firestoreClient.Close()
	log.Println("✅ Firebase initialized")

	// Session state against the hosted identity provider
	session, err := auth.NewSession()
	if err != nil {
		log.Fatalf("❌ FATAL ERROR: %v", err)
	}
	log.Println("✅ Identity provider configured")

	// Maps provider is optional at startup: absence only disables
	// maps-dependent features, it does not stop the daemon
	var mapsClient *maps.Client
	mapsClient, err = maps.NewClient()
	if err != nil {
		log.Printf("⚠️  Warning: %v (maps features disabled)", err)
		mapsClient = nil
	} else {
		log.Println("✅ Maps provider configured")
	}

	// Local trip journal
	journalPath := os.Getenv("TRIP_JOURNAL_PATH")
	if journalPath == "" {
		journalPath = "./tripmate.db"
	}
	journal, err := database.Connect(journalPath)
	if err != nil {
		log.Printf("⚠️  Warning: trip journal unavailable: %v", err)
		journal = nil
	}
	if journal != nil {
		defer journal.Close()
	}

	// Trip synchronization core
	backend := trip.NewFirestoreBackend(firestoreClient)
	provider := location.NewGoogleProvider()
	var journalSink trip.Journal
	if journal != nil {
		journalSink = journal
	}
	trips := trip.NewService(backend, session, provider, journalSink)

	// Signing out must always release the active trip and its resources
	session.OnAuthStateChanged(func(user *auth.User) {
		if user == nil {
			if err := trips.LeaveTrip(); err != nil {
				log.Printf("⚠️  Trip teardown on sign-out failed: %v", err)
			}
		}
	})

	// WebSocket hub pushing every merged snapshot to connected UI clients
	wsHub := websocket.NewHub()
	go wsHub.Run()
	trips.Subscribe(wsHub.BroadcastState)
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication routes (no auth required)
	r.Post("/api/auth/login", handlers.Login(session))
	r.Post("/api/auth/signup", handlers.Signup(session))
	r.Post("/api/auth/reset", handlers.ResetPassword(session))

	// WebSocket endpoint (authentication handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub, trips))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Geocoding endpoints (no auth required)
		r.Post("/geocoding/forward", handlers.Geocode(mapsClient))
		r.Post("/geocoding/reverse", handlers.ReverseGeocode(mapsClient))
		r.Post("/geocoding/suggestions", handlers.PlaceSuggestions(mapsClient))
		r.Post("/geocoding/place-details", handlers.PlaceDetails(mapsClient))
		r.Post("/geocoding/directions", handlers.Directions(mapsClient))

		// Trip + tracking endpoints (require a local session)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Post("/auth/logout", handlers.Logout(session))

			r.Get("/trip", handlers.GetTrip(trips))
			r.Post("/trip/create", handlers.CreateTrip(trips))
			r.Post("/trip/join", handlers.JoinTrip(trips))
			r.Post("/trip/leave", handlers.LeaveTrip(trips))
			r.Post("/trip/sos", handlers.TriggerSOS(trips))
			r.Post("/trip/mode", handlers.SetLocationMode(trips))
			r.Post("/trip/clear-error", handlers.ClearTripError(trips))

			r.Post("/tracking/start", handlers.StartTracking(trips))
			r.Post("/tracking/stop", handlers.StopTracking(trips))

			r.Get("/history/{code}/samples", handlers.TripSamples(journal))
			r.Get("/history/{code}/events", handlers.TripEvents(journal))
		})
	})

	// Get port
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", port)
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Daemon listening on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("❌ FATAL ERROR: server failed to start: %v", err)
	}
}
