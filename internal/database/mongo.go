package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beatwise/entity"
	"beatwise/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionAccounts = "accounts"
	fieldTotalPoints   = "total_points"
)

type MongoDB struct {
	client   *mongo.Client
	database string
}

func NewMongoClient(ctx context.Context, conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	m := &MongoDB{
		client:   client,
		database: conf.Mongo.Database,
	}
	if err = m.ensureIndexes(ctx); err != nil {
		m.Close(ctx)
		return nil, err
	}
	return m, nil
}

func (m *MongoDB) Close(ctx context.Context) {
	_ = m.client.Disconnect(ctx)
}

func (m *MongoDB) accounts() *mongo.Collection {
	return m.client.Database(m.database).Collection(collectionAccounts)
}

func (m *MongoDB) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{"wallet_address", 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{"invite_code", 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{"invited_by", 1}}},
		{Keys: bson.D{{"game_points", -1}, {"_id", 1}}},
		{Keys: bson.D{{"referral_points", -1}, {"_id", 1}}},
		{Keys: bson.D{{"social_points", -1}, {"_id", 1}}},
		{Keys: bson.D{{"high_score", -1}, {"_id", 1}}},
	}
	if _, err := m.accounts().Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongodb indexes: %w", err)
	}
	return nil
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entity.ErrNotFound
	}
	return fmt.Errorf("mongodb find: %w", err)
}

func (m *MongoDB) AccountByWallet(ctx context.Context, wallet string) (*entity.Account, error) {
	filter := bson.D{{"wallet_address", entity.NormalizeWallet(wallet)}}
	var acc entity.Account
	if err := m.accounts().FindOne(ctx, filter).Decode(&acc); err != nil {
		return nil, m.findError(err)
	}
	return &acc, nil
}

func (m *MongoDB) AccountByInviteCode(ctx context.Context, code string) (*entity.Account, error) {
	filter := bson.D{{"invite_code", entity.NormalizeInviteCode(code)}}
	var acc entity.Account
	if err := m.accounts().FindOne(ctx, filter).Decode(&acc); err != nil {
		return nil, m.findError(err)
	}
	return &acc, nil
}

// CreateAccount inserts a new document; a unique index violation is
// reported as a duplicate naming the offending field.
func (m *MongoDB) CreateAccount(ctx context.Context, acc *entity.Account) error {
	acc.Version = 1
	result, err := m.accounts().InsertOne(ctx, acc)
	if err != nil {
		acc.Version = 0
		if mongo.IsDuplicateKeyError(err) {
			field := "wallet_address"
			if strings.Contains(err.Error(), "invite_code") {
				field = "invite_code"
			}
			return entity.Errorf(entity.KindDuplicate, "duplicate %s", field)
		}
		return fmt.Errorf("mongodb insert: %w", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		acc.ID = id
	}
	return nil
}

// SaveAccount replaces the document only if its stored version still
// equals acc.Version, then bumps acc.Version.
func (m *MongoDB) SaveAccount(ctx context.Context, acc *entity.Account) error {
	filter := bson.D{{"wallet_address", acc.WalletAddress}, {"version", acc.Version}}
	next := *acc
	next.Version = acc.Version + 1
	next.UpdatedAt = time.Now().UTC()
	result, err := m.accounts().ReplaceOne(ctx, filter, &next)
	if err != nil {
		return fmt.Errorf("mongodb replace: %w", err)
	}
	if result.MatchedCount == 0 {
		return entity.ErrVersionConflict
	}
	acc.Version = next.Version
	acc.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *MongoDB) CountAccounts(ctx context.Context) (int64, error) {
	n, err := m.accounts().CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongodb count: %w", err)
	}
	return n, nil
}

// CountAbove counts accounts whose scope score is strictly greater.
func (m *MongoDB) CountAbove(ctx context.Context, scope entity.Scope, score int64) (int64, error) {
	if scope != entity.ScopeTotal {
		n, err := m.accounts().CountDocuments(ctx, bson.D{{scoreField(scope), bson.D{{"$gt", score}}}})
		if err != nil {
			return 0, fmt.Errorf("mongodb count: %w", err)
		}
		return n, nil
	}

	pipeline := mongo.Pipeline{
		totalStage(),
		{{"$match", bson.D{{fieldTotalPoints, bson.D{{"$gt", score}}}}}},
		{{"$count", "count"}},
	}
	cursor, err := m.accounts().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongodb aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Count int64 `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("mongodb aggregate: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// TopAccounts returns a page ordered by descending score, ties broken by
// insertion order.
func (m *MongoDB) TopAccounts(ctx context.Context, scope entity.Scope, skip, limit int64) ([]*entity.Account, error) {
	if skip < 0 || limit < 1 {
		return nil, entity.Errorf(entity.KindInvalidPage, "invalid window skip=%d limit=%d", skip, limit)
	}
	var cursor *mongo.Cursor
	var err error

	if scope == entity.ScopeTotal {
		pipeline := mongo.Pipeline{
			totalStage(),
			{{"$sort", bson.D{{fieldTotalPoints, -1}, {"_id", 1}}}},
			{{"$skip", skip}},
			{{"$limit", limit}},
		}
		cursor, err = m.accounts().Aggregate(ctx, pipeline)
	} else {
		opts := options.Find().
			SetSort(bson.D{{scoreField(scope), -1}, {"_id", 1}}).
			SetSkip(skip).
			SetLimit(limit)
		cursor, err = m.accounts().Find(ctx, bson.D{}, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("mongodb top: %w", err)
	}
	defer cursor.Close(ctx)

	accounts := make([]*entity.Account, 0, limit)
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, fmt.Errorf("mongodb top: %w", err)
	}
	return accounts, nil
}

func totalStage() bson.D {
	return bson.D{{"$addFields", bson.D{{fieldTotalPoints, bson.D{{"$add", bson.A{"$game_points", "$referral_points", "$social_points"}}}}}}}
}

func scoreField(scope entity.Scope) string {
	switch scope {
	case entity.ScopeGame:
		return "game_points"
	case entity.ScopeReferral:
		return "referral_points"
	case entity.ScopeSocial:
		return "social_points"
	case entity.ScopeHighScore:
		return "high_score"
	}
	return fieldTotalPoints
}
