package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	requestservice "bloodlink/internal/bloodrequest/service"
	requeststore "bloodlink/internal/bloodrequest/store"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	"bloodlink/internal/donorsearch"
	historystore "bloodlink/internal/history/store"
	matchingservice "bloodlink/internal/matching/service"
	matchstore "bloodlink/internal/matching/store/match"
	notificationservice "bloodlink/internal/notification/service"
	notificationstore "bloodlink/internal/notification/store"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/postgres"
	audit "bloodlink/pkg/platform/audit"
	auditmemory "bloodlink/pkg/platform/audit/store/memory"
	auditpostgres "bloodlink/pkg/platform/audit/store/postgres"
)

// storage groups the stores for one persistence mode.
type storage struct {
	requests interface {
		matchingservice.RequestStore
		requestservice.Store
	}
	donors interface {
		matchingservice.DonorStore
		donorservice.Store
	}
	matches  matchingservice.MatchStore
	history  matchingservice.HistoryStore
	audit    audit.Store
	finder   matchingservice.DonorFinder
	txRunner matchingservice.TxRunner
}

// buildStorage uses Postgres when a database is configured and falls back to
// in-memory stores for local development.
func buildStorage(db *sql.DB, log *slog.Logger) storage {
	if db != nil {
		log.Info("using postgres storage")
		return storage{
			requests: requeststore.NewPostgres(db),
			donors:   donorstore.NewPostgres(db),
			matches:  matchstore.NewPostgres(db),
			history:  historystore.NewPostgres(db),
			audit:    auditpostgres.New(db),
			finder:   donorsearch.NewPostgresFinder(db),
			txRunner: postgres.NewTxRunner(db),
		}
	}

	log.Warn("DATABASE_URL not set, using in-memory storage")
	requests := requeststore.NewInMemory()
	donors := donorstore.NewInMemory()
	return storage{
		requests: requests,
		donors:   donors,
		matches:  matchstore.NewInMemory(),
		history:  historystore.NewInMemory(),
		audit:    auditmemory.NewInMemoryStore(),
		finder:   donorsearch.NewMemoryFinder(requests, donors),
	}
}

func buildNotificationStore(ctx context.Context, cfg config.NotificationConfig, db *sql.DB) (notificationservice.Store, error) {
	switch cfg.Backend {
	case config.NotificationBackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("notification backend %q requires DATABASE_URL", cfg.Backend)
		}
		return notificationstore.NewPostgres(db), nil
	case config.NotificationBackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return notificationstore.NewDynamoDB(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable), nil
	case config.NotificationBackendMemory:
		return notificationstore.NewInMemory(), nil
	default:
		return nil, fmt.Errorf("unknown notification backend %q", cfg.Backend)
	}
}
