package database

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"agenda/internal/models"
	"agenda/internal/utils"
)

var DB *gorm.DB

// InitDB initializes the database connection
func InitDB(log zerolog.Logger) error {
	var dsn string

	// In production the platform provides a single DATABASE_URL.
	if url := os.Getenv("DATABASE_URL"); url != "" {
		dsn = url
	} else {
		// In development, use individual connection parameters
		host := getEnvRequired(log, "DB_HOST")
		user := getEnvRequired(log, "DB_USER")
		password := getEnvRequired(log, "DB_PASSWORD")
		dbname := getEnvRequired(log, "DB_NAME")
		port := getEnvRequired(log, "DB_PORT")
		sslMode := os.Getenv("DB_SSL_MODE")
		if sslMode == "" {
			sslMode = "disable" // Default to disable for local development
		}

		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
			host, user, password, dbname, port, sslMode)
	}

	// Filter the reminder worker poll out of query logging.
	gormLogger := utils.NewGormLogger(log, `"reminder_time" <=`)

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true, // Use singular table names
		},
		PrepareStmt:                              true,  // Enable prepared statement cache
		SkipDefaultTransaction:                   false, // Keep default transaction for safety
		DisableForeignKeyConstraintWhenMigrating: false, // Enable foreign key constraints
	}

	// Open connection with retry logic
	var err error
	maxRetries := 5
	retryDelay := time.Second * 5

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(dsn), gormConfig)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("database connection attempt failed")
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	// Configure connection pool
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := DB.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.RecurrenceRule{},
		&models.Reminder{},
		&models.EmailVerificationToken{},
		&models.PasswordResetToken{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info().Msg("database connection established and migrations completed")
	return nil
}

// getEnvRequired returns environment variable value or exits if not set
func getEnvRequired(log zerolog.Logger, key string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Fatal().Str("key", key).Msg("required environment variable is not set")
	return "" // This line will never execute due to the Fatal above
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
