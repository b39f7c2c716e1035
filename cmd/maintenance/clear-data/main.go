package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/config"
	"github.com/tripnest/booking-service/internal/database"
	"github.com/tripnest/booking-service/internal/services"
)

// tables owned by the booking service
var tables = []string{
	"audit_logs",
	"otp_rate_limits",
}

func main() {
	var (
		dbURLFlag     string
		olderThanDays int
		truncateAll   bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&olderThanDays, "older-than-days", 90, "Delete audit rows older than this many days")
	flag.BoolVar(&truncateAll, "all", false, "Truncate every booking service table instead of pruning")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if truncateAll {
		fmt.Println("Connected to database. Truncating tables...")
		if _, err := db.Exec("TRUNCATE TABLE audit_logs, otp_rate_limits RESTART IDENTITY"); err != nil {
			log.Fatalf("failed to truncate tables: %v", err)
		}
	} else {
		prune(db, time.Duration(olderThanDays)*24*time.Hour)
	}

	fmt.Println("Row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}

// prune applies the same retention the server's cron jobs apply
func prune(db database.DB, retention time.Duration) {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	// pseudonyms are never recomputed here, any key will do
	hasher, err := services.NewPhoneHasher("")
	if err != nil {
		log.Fatalf("failed to create hasher: %v", err)
	}

	audit := services.NewAuditService(db, hasher, logger)
	deleted, err := audit.CleanupOldAuditLogs(retention)
	if err != nil {
		log.Fatalf("failed to prune audit logs: %v", err)
	}
	fmt.Printf("Deleted %d audit rows older than %s\n", deleted, retention)

	// same windows as the server, read from the OTP_* variables
	limiter := services.NewRateLimitService(db, services.NewRateLimitConfig(config.LoadOTP()), hasher)
	expired, err := limiter.CleanupExpiredRateLimits()
	if err != nil {
		log.Fatalf("failed to prune rate limit windows: %v", err)
	}
	fmt.Printf("Deleted %d expired rate limit rows\n", expired)
}
