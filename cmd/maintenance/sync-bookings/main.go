package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/tourexplorer/booking-engine/internal/config"
	"github.com/tourexplorer/booking-engine/internal/database"
	"github.com/tourexplorer/booking-engine/internal/repository"
	"github.com/tourexplorer/booking-engine/internal/services"
	"github.com/tourexplorer/booking-engine/pkg/tourapi"
)

// sync-bookings runs one reconciliation pass: bookings and enquiries created
// while the remote service was down are pushed, and queued status changes replayed.
func main() {
	var (
		dbURLFlag   string
		driverFlag  string
		remoteFlag  string
		timeoutFlag time.Duration
		dryRun      bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&driverFlag, "driver", "", "database driver: postgres or pgx (overrides DATABASE_DRIVER)")
	flag.StringVar(&remoteFlag, "remote-url", "", "remote booking service URL (overrides REMOTE_API_URL)")
	flag.DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "timeout for the whole pass")
	flag.BoolVar(&dryRun, "dry-run", false, "only list the owner namespaces and queued status changes")
	flag.Parse()

	_ = godotenv.Load()

	dbCfg := config.DatabaseConfig{
		URL:                firstNonEmpty(dbURLFlag, os.Getenv("DATABASE_URL")),
		Driver:             firstNonEmpty(driverFlag, os.Getenv("DATABASE_DRIVER"), "postgres"),
		MaxConnections:     2,
		MaxIdleConnections: 1,
	}
	if dbCfg.URL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	cache, db, err := database.OpenCacheStore(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to open local cache: %v", err)
	}
	defer db.Close()

	remote := tourapi.NewClient(tourapi.Config{
		BaseURL: firstNonEmpty(remoteFlag, os.Getenv("REMOTE_API_URL"), "http://localhost:5000/api"),
	})
	provider := repository.NewProvider(remote, cache, logger)

	if dryRun {
		owners, err := provider.Owners(ctx)
		if err != nil {
			log.Fatalf("failed to list owners: %v", err)
		}
		for _, owner := range owners {
			fmt.Printf("%-40s queued status changes: %d\n", owner, len(provider.Patches(owner).Pending(ctx)))
		}
		return
	}

	report, err := services.NewReconcileService(provider, logger).Run(ctx)
	if err != nil {
		log.Fatalf("reconciliation failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))

	if report.RemoteUnavailable {
		os.Exit(2)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
