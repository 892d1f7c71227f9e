package db

import (
	"log"
	"time"

	"quiz-backend/internal/config"
	"quiz-backend/internal/models"
	"quiz-backend/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN
	log.Printf("Connecting to database: %s", dsn)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")

	log.Println("🚀 Starting database schema migration with GORM AutoMigrate...")

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	initRegistryOwner(DB)

	log.Println("✅ Database schema migrated successfully")
}

// Migrate runs schema migration for all models. Split out from InitDB so
// tests can migrate an in-memory database.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Account{},
		&models.HandlerRegistration{},
		&models.Deployment{},
		&models.QuizEscrow{},
		&models.QuizParticipant{},
		&models.GlobalConfig{},
	)
}

// initRegistryOwner seeds the registry owner from configuration on first
// start. An existing row is never overwritten: once ownership has been
// transferred or renounced through the API, config no longer applies.
func initRegistryOwner(gdb *gorm.DB) {
	var ownerConfig models.GlobalConfig
	if err := gdb.Where("config_key = ?", "registry_owner").First(&ownerConfig).Error; err == nil {
		log.Printf("📋 Registry owner already initialized: %s", ownerConfig.ConfigValue)
		return
	}

	owner := utils.ZeroAddress
	if config.AppConfig != nil && config.AppConfig.Registry.OwnerAddress != "" {
		owner = utils.NormalizeAddress(config.AppConfig.Registry.OwnerAddress)
	}

	ownerConfig = models.GlobalConfig{
		ConfigKey:   "registry_owner",
		ConfigValue: owner,
		Description: "Current registry owner (zero address = renounced)",
		UpdatedBy:   "system",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := gdb.Create(&ownerConfig).Error; err != nil {
		log.Printf("⚠️ Failed to seed registry owner: %v", err)
		return
	}
	log.Printf("✅ Initialized registry owner: %s", owner)
}
