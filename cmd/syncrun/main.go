package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go-bms/internal/config"
	"go-bms/internal/database"
	"go-bms/internal/features/connection"
	"go-bms/internal/features/record"
	"go-bms/internal/features/sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// syncrun inspects the sync configuration and optionally triggers one
// run from the command line:
//
//	go run ./cmd/syncrun                    list mappings and recent runs
//	go run ./cmd/syncrun -run <mappingID>   execute one sync run
func main() {
	runID := flag.String("run", "", "mapping id to sync")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal(err)
	}
	db := &database.MongodbDB{DB: client.Database(cfg.DBName)}

	ctx := context.Background()

	if *runID != "" {
		logger, _ := zap.NewDevelopment()
		defer logger.Sync()

		service := sync.NewSyncService(
			sync.NewSyncMappingRepository(db),
			sync.NewSyncRunLogRepository(db),
			sync.NewExternalIDRepository(db),
			record.NewRecordRepository(db),
			connection.NewConnectionService(connection.NewConnectionRepository(db), logger),
			sync.NewProgressHub(),
			logger,
		)

		result, err := service.RunSync(ctx, *runID)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Run %s finished: %s (processed=%d created=%d updated=%d failed=%d)\n",
			result.ID, result.Status,
			result.RecordsProcessed, result.RecordsCreated, result.RecordsUpdated, result.RecordsFailed)
		for _, e := range result.Errors {
			fmt.Printf("  - %s: %s (%s)\n", e.RecordID, e.ErrorCode, e.Message)
		}
		return
	}

	fmt.Println("--- Sync Mappings ---")
	opts := options.Find().SetLimit(20)
	cur, err := db.DB.Collection("sync_mappings").Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Fatal(err)
	}
	var mappings []bson.M
	cur.All(ctx, &mappings)
	for _, m := range mappings {
		fmt.Printf("ID: %v, Name: %v, Direction: %v, Active: %v, LastSyncAt: %v\n",
			m["_id"], m["name"], m["direction"], m["is_active"], m["last_sync_at"])
	}

	fmt.Println("\n--- Recent Runs ---")
	logOpts := options.Find().SetSort(bson.M{"start_time": -1}).SetLimit(10)
	logCur, err := db.DB.Collection("sync_run_logs").Find(ctx, bson.M{}, logOpts)
	if err != nil {
		log.Fatal(err)
	}
	var runs []bson.M
	logCur.All(ctx, &runs)
	for _, r := range runs {
		fmt.Printf("Run: %v, Status: %v, Processed: %v, Failed: %v, Start: %v\n",
			r["run_id"], r["status"], r["records_processed"], r["records_failed"], r["start_time"])
	}
}
