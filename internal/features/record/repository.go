package record

import (
	"context"
	"time"

	"go-bms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordRepository reads and writes the dynamic per-collection business
// records the sync engine exchanges with partner systems. Collections
// are addressed by name; documents are schemaless maps.
type RecordRepository interface {
	// ListUpdatedSince returns records in the collection modified after
	// the watermark, oldest first, paged.
	ListUpdatedSince(ctx context.Context, collection string, since time.Time, limit, offset int64) ([]map[string]interface{}, error)

	// Upsert writes a pulled remote record by its local id, inserting
	// when absent.
	Upsert(ctx context.Context, collection string, localID string, doc map[string]interface{}) error
}

type RecordRepositoryImpl struct {
	db *mongo.Database
}

func NewRecordRepository(db *database.MongodbDB) RecordRepository {
	return &RecordRepositoryImpl{db: db.DB}
}

func (r *RecordRepositoryImpl) ListUpdatedSince(ctx context.Context, collection string, since time.Time, limit, offset int64) ([]map[string]interface{}, error) {
	filter := bson.M{}
	if !since.IsZero() {
		filter["updated_at"] = bson.M{"$gt": since}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []map[string]interface{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *RecordRepositoryImpl) Upsert(ctx context.Context, collection string, localID string, doc map[string]interface{}) error {
	doc["updated_at"] = time.Now()

	opts := options.Update().SetUpsert(true)
	_, err := r.db.Collection(collection).UpdateOne(
		ctx,
		bson.M{"local_id": localID},
		bson.M{"$set": doc},
		opts,
	)
	return err
}
