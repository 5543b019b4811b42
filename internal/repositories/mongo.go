package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/config"
	"github.com/rohits-web03/radiologix/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection = "users"
	scansCollection = "scan_reports"
)

var ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

// MongoStore keeps users and scan reports as documents. The application id
// lives in an "id" field next to Mongo's own _id.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	scans  *mongo.Collection
}

// OpenMongo connects with retries, selects the database and ensures indexes.
func OpenMongo(ctx context.Context, uri, database string, cfg config.MongoConfig, log *slog.Logger) (*MongoStore, error) {
	client, err := connectMongo(ctx, uri, cfg, log)
	if err != nil {
		return nil, err
	}

	s := NewMongoStore(client, client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info("connected to mongo", "database", database)
	return s, nil
}

func connectMongo(ctx context.Context, uri string, cfg config.MongoConfig, log *slog.Logger) (*mongo.Client, error) {
	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(uri).
				SetConnectTimeout(cfg.ConnectTimeout).
				SetMaxPoolSize(cfg.MaxPoolSize),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client, nil
			}
			_ = client.Disconnect(ctx)
		}
		log.Warn("mongo connect attempt failed", "attempt", i+1, "error", err)

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}
	return nil, ErrFailedToConnectToMongo
}

// NewMongoStore uses the given database without touching indexes.
func NewMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		scans:  db.Collection(scansCollection),
	}
}

// EnsureIndexes creates the unique email and id indexes that back
// registration, and the owner index used for listing scans.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.scans.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create scan indexes: %w", err)
	}
	return nil
}

// ---------- Users ----------

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return translateWrite(err)
	}
	return nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&u); err != nil {
		return nil, translateFind(err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&u); err != nil {
		return nil, translateFind(err)
	}
	return &u, nil
}

// ---------- Scan reports ----------

func (s *MongoStore) CreateScan(ctx context.Context, r *models.ScanReport) error {
	if _, err := s.scans.InsertOne(ctx, r); err != nil {
		return translateWrite(err)
	}
	return nil
}

func (s *MongoStore) ListScansByUser(ctx context.Context, userID string, limit int) ([]models.ScanReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.scans.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	out := make([]models.ScanReport, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (s *MongoStore) GetScanForUser(ctx context.Context, id, userID string) (*models.ScanReport, error) {
	var r models.ScanReport
	filter := bson.D{{Key: "id", Value: id}, {Key: "user_id", Value: userID}}
	if err := s.scans.FindOne(ctx, filter).Decode(&r); err != nil {
		return nil, translateFind(err)
	}
	return &r, nil
}

// ---------- Lifecycle ----------

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translateFind(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return common.ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}

func translateWrite(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return common.ErrAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}
