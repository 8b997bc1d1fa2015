package main

import (
	"log"

	"degentalk-backend/config"
	"degentalk-backend/internal/api"
	"degentalk-backend/internal/database"
	"degentalk-backend/internal/models"
	"degentalk-backend/internal/services"
	"degentalk-backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// @title degentalk-backend API
// @version 1.0
// @description Economy and ledger engine for the Degentalk forum.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	router, econ, err := api.NewRouter()
	if err != nil {
		log.Fatalf("failed to create router: %v", err)
	}

	// Migrate the schema
	err = database.DB.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.Transaction{},
		&models.RateUsageRecord{},
		&models.FeatureGate{},
		&models.GatewayConfig{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	initAdminUser()

	watcher := services.NewSettlementWatcher(econ, cfg.Economy.WatchInterval)
	watcher.Start()
	defer watcher.Stop()

	if err := router.Run(":8080"); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

func initAdminUser() {
	adminUsername := "admin@degentalk.local"
	adminPassword := "ChangeMe1234"

	var adminUser models.User
	result := database.DB.Where("username = ?", adminUsername).First(&adminUser)

	if result.Error != nil {
		if result.Error.Error() == "record not found" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("failed to hash admin password: %v", err)
			}

			adminUser = models.User{
				Username: adminUsername,
				Password: string(hashedPassword),
				Role:     "admin",
				Level:    1,
				IsActive: true,
			}

			if err := database.DB.Create(&adminUser).Error; err != nil {
				log.Fatalf("failed to create admin user: %v", err)
			}
			log.Println("Admin user created successfully!")
		} else {
			log.Fatalf("failed to check for admin user: %v", result.Error)
		}
	} else {
		log.Println("Admin user already exists.")
	}
}
