package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stream-economy/handlers"
	"stream-economy/middleware"
	"stream-economy/models"
	"stream-economy/services"
	"stream-economy/utils"
	"stream-economy/workers"

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

	app := fiber.New(fiber.Config{})

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
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  R2 unavailable, session archiving disabled: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.Crate{},
		&models.InventoryItem{},
		&models.ActiveBuff{},
		&models.EventLog{},
		&models.CompetitiveSession{},
		&models.Contribution{},
		&models.CrownChange{},
		&models.LeaderboardEntry{},
		&models.Heist{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.ValidateDropTables(); err != nil {
		log.Fatal("invalid drop table configuration:", err)
	}
	if err := services.ValidateCatalog(); err != nil {
		log.Fatal("invalid content catalog:", err)
	}

	rng := utils.NewSecureRNG()
	publisher := services.NewPublisher()

	economyService := services.NewEconomyService(db, rng, publisher)
	heistService := services.NewHeistService(db, rng, economyService, publisher)
	crownService := services.NewCrownService(db, economyService, heistService, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Best-effort consumers: each gets its own buffer so one slow handler
	// can't stall the other
	announcer := workers.NewAnnouncer()
	go announcer.Run(ctx, publisher.Subscribe(64))

	leaderboardClient := workers.NewLeaderboardClient(db)
	go workers.PollLeaderboards(ctx, leaderboardClient, 30*time.Second, publisher.Subscribe(64))

	services.StartSweeps(economyService, heistService)

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupEconomyRoutes(app, economyService)
	handlers.SetupHeistRoutes(app, heistService)
	handlers.SetupSessionRoutes(app, crownService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Announcer and leaderboard workers running")
	log.Println("✅ Background sweeps armed (heists, escrow, buffs)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	publisher.Close()
}
