package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/classpix/classpixbackend/config"
	"github.com/classpix/classpixbackend/database"
	"github.com/classpix/classpixbackend/embedding"
	"github.com/classpix/classpixbackend/handlers"
	"github.com/classpix/classpixbackend/media"
	"github.com/classpix/classpixbackend/repository"
	"github.com/classpix/classpixbackend/services"
	"github.com/classpix/classpixbackend/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if dbDir := filepath.Dir(cfg.DatabasePath); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create database directory %s: %v", dbDir, err)
		}
	}

	db, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		log.Fatalf("FATAL: Failed to migrate database schema: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying sql.DB: %v", err)
	}
	defer sqlDB.Close()

	sessionRepo := repository.NewSessionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	photoRepo := repository.NewPhotoRepository(db)
	faceRepo := repository.NewFaceRepository(db)

	detector := media.NewDNNFaceDetector(cfg.FaceDNNNetConfigPath, cfg.FaceDNNNetModelPath, float32(cfg.FaceDNNConfThreshold))
	defer detector.Close()

	var extractor media.Extractor
	switch cfg.FaceModel {
	case embedding.ModelArcFace:
		dnn := media.NewDNNExtractor(cfg.FaceRecognitionModelPath)
		defer dnn.Close()
		extractor = dnn
	default:
		extractor = media.NewGridExtractor()
	}
	log.Printf("Using face descriptor model: %s", extractor.Model())

	analyzer := media.NewAnalyzer(detector, extractor)

	matchingService := services.NewMatchingService(studentRepo, faceRepo, cfg.Thresholds)
	enrollmentService := services.NewEnrollmentService(studentRepo, analyzer, matchingService)
	importService := services.NewImportService(studentRepo, photoRepo, faceRepo, analyzer, matchingService)

	log.Printf("Initializing import worker pool (Workers: %d, Queue Size: %d)...", cfg.NumImportWorkers, cfg.ImportQueueSize)
	importProcessor := workers.NewImportProcessor(importService, cfg.ImportQueueSize, cfg.NumImportWorkers)
	defer importProcessor.Stop()

	log.Printf("Importing photographs from root: %s", cfg.RootDirectory)
	log.Printf("Using database: %s", cfg.DatabasePath)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	sessionHandler := &handlers.SessionHandler{Repo: sessionRepo}
	studentHandler := &handlers.StudentHandler{Repo: studentRepo, Enrollment: enrollmentService}
	faceHandler := &handlers.FaceHandler{Repo: faceRepo, Matching: matchingService}
	photoHandler := &handlers.PhotoHandler{Photos: photoRepo, Faces: faceRepo}
	importHandler := &handlers.ImportHandler{Sessions: sessionRepo, Processor: importProcessor, RootDirectory: cfg.RootDirectory}
	statsHandler := &handlers.StatsHandler{DB: sqlDB}

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.CreateSession)
			r.Get("/", sessionHandler.ListSessions)
			r.Route("/{session_id}", func(r chi.Router) {
				r.Get("/", sessionHandler.GetSession)
				r.Put("/", sessionHandler.UpdateSession)
				r.Delete("/", sessionHandler.DeleteSession)

				r.Post("/students", studentHandler.EnrollStudent)
				r.Get("/students", studentHandler.ListStudents)

				r.Post("/import", importHandler.ImportDirectory)
				r.Post("/import/photo", importHandler.ImportPhoto)
				r.Get("/photos", photoHandler.ListPhotos)

				r.Post("/rematch", faceHandler.RematchSession)
				r.Get("/review", faceHandler.ListNeedsReview)

				r.Get("/stats", statsHandler.GetSessionStats)
				r.Get("/stats/students", statsHandler.ListStudentPhotoCounts)
			})
		})

		r.Route("/students/{student_id}", func(r chi.Router) {
			r.Get("/", studentHandler.GetStudent)
			r.Put("/", studentHandler.UpdateStudent)
			r.Delete("/", studentHandler.DeleteStudent)
			r.Post("/references", studentHandler.AddReferencePhoto)
			r.Post("/recompute", studentHandler.RecomputeDescriptor)
		})

		r.Route("/photos/{photo_id}", func(r chi.Router) {
			r.Get("/", photoHandler.GetPhoto)
			r.Delete("/", photoHandler.DeletePhoto)
		})

		r.Route("/faces/{face_id}", func(r chi.Router) {
			r.Post("/confirm", faceHandler.ConfirmFace)
			r.Post("/unassign", faceHandler.UnassignFace)
		})

		r.Get("/import/status", importHandler.ImportStatus)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
