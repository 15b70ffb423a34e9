package sync

import (
	"context"
	"time"

	"go-bms/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SyncMappingRepository interface {
	Create(ctx context.Context, mapping *SyncMapping) error
	Get(ctx context.Context, id string) (*SyncMapping, error)
	List(ctx context.Context) ([]SyncMapping, error)
	ListActive(ctx context.Context, frequency string) ([]SyncMapping, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type SyncMappingRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncMappingRepository(db *database.MongodbDB) SyncMappingRepository {
	return &SyncMappingRepositoryImpl{
		collection: db.DB.Collection("sync_mappings"),
	}
}

func (r *SyncMappingRepositoryImpl) Create(ctx context.Context, mapping *SyncMapping) error {
	if mapping.ID.IsZero() {
		mapping.ID = primitive.NewObjectID()
	}
	mapping.CreatedAt = time.Now()
	mapping.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, mapping)
	return err
}

func (r *SyncMappingRepositoryImpl) Get(ctx context.Context, id string) (*SyncMapping, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var mapping SyncMapping
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *SyncMappingRepositoryImpl) List(ctx context.Context) ([]SyncMapping, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mappings []SyncMapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *SyncMappingRepositoryImpl) ListActive(ctx context.Context, frequency string) ([]SyncMapping, error) {
	filter := bson.M{"is_active": true}
	if frequency != "" {
		filter["frequency"] = frequency
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mappings []SyncMapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (r *SyncMappingRepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	return err
}

func (r *SyncMappingRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

type SyncRunLogRepository interface {
	Create(ctx context.Context, log *SyncRunLog) error
	Finish(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	ListByMapping(ctx context.Context, mappingID string, limit int64) ([]SyncRunLog, error)
}

type SyncRunLogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncRunLogRepository(db *database.MongodbDB) SyncRunLogRepository {
	return &SyncRunLogRepositoryImpl{
		collection: db.DB.Collection("sync_run_logs"),
	}
}

func (r *SyncRunLogRepositoryImpl) Create(ctx context.Context, log *SyncRunLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *SyncRunLogRepositoryImpl) Finish(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": updates})
	return err
}

func (r *SyncRunLogRepositoryImpl) ListByMapping(ctx context.Context, mappingID string, limit int64) ([]SyncRunLog, error) {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"mapping_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []SyncRunLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

type ExternalIDRepository interface {
	Map(ctx context.Context, mappingID primitive.ObjectID) (map[string]string, error)
	Save(ctx context.Context, mappingID primitive.ObjectID, localID, externalID string) error
}

type ExternalIDRepositoryImpl struct {
	collection *mongo.Collection
}

func NewExternalIDRepository(db *database.MongodbDB) ExternalIDRepository {
	return &ExternalIDRepositoryImpl{
		collection: db.DB.Collection("external_id_mappings"),
	}
}

// Map loads every known local-to-external link for one mapping. The
// batch processor uses it to route records to create or update.
func (r *ExternalIDRepositoryImpl) Map(ctx context.Context, mappingID primitive.ObjectID) (map[string]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"mapping_id": mappingID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	ids := map[string]string{}
	for cursor.Next(ctx) {
		var link ExternalIDMapping
		if err := cursor.Decode(&link); err != nil {
			return nil, err
		}
		ids[link.LocalID] = link.ExternalID
	}
	return ids, cursor.Err()
}

func (r *ExternalIDRepositoryImpl) Save(ctx context.Context, mappingID primitive.ObjectID, localID, externalID string) error {
	filter := bson.M{"mapping_id": mappingID, "local_id": localID}
	update := bson.M{"$set": bson.M{
		"external_id": externalID,
		"created_at":  time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}
