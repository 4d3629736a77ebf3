// One-shot activity sync, useful for backfilling a fresh database or
// running from cron instead of the in-service periodic sync.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/andrewwb/trainsight/internal/activities"
	"github.com/andrewwb/trainsight/internal/config"
	"github.com/andrewwb/trainsight/internal/db"
	"github.com/andrewwb/trainsight/internal/logging"
	"github.com/andrewwb/trainsight/internal/strava"
	"github.com/andrewwb/trainsight/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
	})

	stravaClientID := os.Getenv("TRAINSIGHT_STRAVA_CLIENT_ID")
	stravaClientSecret := os.Getenv("TRAINSIGHT_STRAVA_CLIENT_SECRET")
	stravaRefreshToken := os.Getenv("TRAINSIGHT_STRAVA_REFRESH_TOKEN")
	if stravaClientID == "" || stravaClientSecret == "" || stravaRefreshToken == "" {
		log.Fatalf("strava credentials not set, use TRAINSIGHT_STRAVA_CLIENT_ID, TRAINSIGHT_STRAVA_CLIENT_SECRET and TRAINSIGHT_STRAVA_REFRESH_TOKEN")
	}

	ctx := context.Background()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	tokenSource := strava.NewRefreshTokenSource(strava.NewRefreshTokenSourceParams{
		OAuthBaseURL: cfg.StravaOAuthBaseURL,
		ClientID:     stravaClientID,
		ClientSecret: stravaClientSecret,
		RefreshToken: stravaRefreshToken,
	})
	stravaClient := strava.NewClient(strava.NewClientParams{
		BaseURL:     cfg.StravaBaseURL,
		TokenSource: tokenSource,
		SportTypes:  cfg.SportTypes,
	})

	metricsManager := metrics.NewManager("trainsight", "sync", metrics.SetupPrometheus())
	syncer := activities.NewSyncer(
		stravaClient,
		activities.NewRepo(dbPool),
		metricsManager,
		cfg.SyncPageSize,
	)

	res, err := syncer.Sync(ctx)
	if err != nil {
		log.Fatalf("sync: %s", err)
	}

	fmt.Printf(
		"sync done: fetched %d, inserted %d, skipped %d (since %s)\n",
		res.Fetched, res.Inserted, res.Skipped, res.Since,
	)
}
