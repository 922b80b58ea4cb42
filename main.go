package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tournament-draft-system/connectivity"
	"tournament-draft-system/handlers"
	"tournament-draft-system/middleware"
	"tournament-draft-system/models"
	"tournament-draft-system/services"
	"tournament-draft-system/storage"
	"tournament-draft-system/utils"
	"tournament-draft-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 5 * 1024 * 1024, // drafts are small documents; 5MB is generous
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Draft{},
		&models.AuditLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	localCachePath := os.Getenv("LOCAL_CACHE_PATH")
	if localCachePath == "" {
		localCachePath = "./data/draft_cache.db"
	}
	localStore, err := storage.OpenLocalStore(localCachePath)
	if err != nil {
		log.Fatal("failed to open local draft cache:", err)
	}
	defer localStore.Close()

	monitor := connectivity.NewMonitor(true)
	remoteStore := storage.NewRemoteDraftStore(db, monitor)
	auditEmitter := services.NewAsyncAuditEmitter(db, os.Getenv("AUDIT_SINK_URL"))

	repo := services.NewDraftRepository(localStore, remoteStore, monitor, auditEmitter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := repo.Restore(ctx); err != nil {
		log.Fatal("failed to restore drafts from local cache:", err)
	}

	autosaveInterval := services.DefaultAutosaveInterval
	if v := os.Getenv("AUTOSAVE_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			autosaveInterval = time.Duration(n) * time.Second
		} else {
			log.Printf("⚠️  invalid AUTOSAVE_INTERVAL_SECONDS %q, using default", v)
		}
	}
	scheduler := services.NewAutosaveScheduler(repo, auditEmitter, autosaveInterval)

	reconcileInterval := 5 * time.Minute
	if v := os.Getenv("RECONCILE_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			reconcileInterval = time.Duration(n) * time.Minute
		}
	}
	reconcileWorker := workers.NewReconcileWorker(repo, monitor, reconcileInterval)
	reconcileWorker.Start(ctx)

	if utils.R2Configured() {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		archiver := workers.NewAuditArchiver(db, time.Hour)
		archiver.Start(ctx)
	} else {
		log.Println("⚠️  R2 not configured — audit archiving disabled")
	}

	draftService := services.NewDraftService(repo, scheduler, monitor)
	handlers.SetupDraftRoutes(app, draftService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Printf("✅ Autosave debounce: %s, reconcile interval: %s", autosaveInterval, reconcileInterval)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")

	// Commit whatever the debounce windows were still holding.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.FlushAll(flushCtx)
	auditEmitter.Close()
}
