package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/stockledger/internal/domain/models"
)

const (
	stateCollection    = "ledger_state"
	snapshotCollection = "stock_snapshots"
)

// SnapshotRepository defines the interface for report storage.
type SnapshotRepository interface {
	SaveStockSnapshot(ctx context.Context, snapshot models.StockSnapshot) error
}

// MongoDBRepository stores the ledger collections and the daily snapshots.
// All collections of one namespace live in a single document so that a
// multi-key write is one atomic update.
type MongoDBRepository struct {
	client    *mongo.Client
	dbName    string
	namespace string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri, dbName, namespace string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:    client,
		dbName:    dbName,
		namespace: namespace,
	}, nil
}

// Get reads one collection blob.
func (r *MongoDBRepository) Get(ctx context.Context, key string) (string, bool, error) {
	collection := r.client.Database(r.dbName).Collection(stateCollection)

	var doc bson.M
	err := collection.FindOne(ctx, bson.M{"_id": r.namespace}, options.FindOne().SetProjection(bson.M{key: 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	raw, ok := doc[key]
	if !ok {
		return "", false, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", false, fmt.Errorf("field %s has type %T, want string", key, raw)
	}
	return value, true, nil
}

// SetMany writes several collection blobs with a single $set.
func (r *MongoDBRepository) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	fields := bson.M{}
	for k, v := range values {
		fields[k] = v
	}

	collection := r.client.Database(r.dbName).Collection(stateCollection)
	_, err := collection.UpdateOne(ctx,
		bson.M{"_id": r.namespace},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write ledger state: %w", err)
	}
	return nil
}

// SaveStockSnapshot saves a daily snapshot to the database.
func (r *MongoDBRepository) SaveStockSnapshot(ctx context.Context, snapshot models.StockSnapshot) error {
	collection := r.client.Database(r.dbName).Collection(snapshotCollection)
	_, err := collection.InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert stock snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
