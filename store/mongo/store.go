package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/replay"
	"github.com/xraph/replay/account"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/id"
	"github.com/xraph/replay/ledger"
	replaystore "github.com/xraph/replay/store"
	"github.com/xraph/replay/types"
)

// Collection name constants.
const (
	colAccounts     = "replay_accounts"
	colTransactions = "replay_transactions"
	colAnalyses     = "replay_analyses"
)

// compile-time interface check
var _ replaystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all replay collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("replay/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return replay.ErrAccountExists
		}
		return fmt.Errorf("replay/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, replay.ErrAccountNotFound
		}
		return nil, fmt.Errorf("replay/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) GetAccountByUser(ctx context.Context, userID string) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, replay.ErrAccountNotFound
		}
		return nil, fmt.Errorf("replay/mongo: get account by user: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	var models []accountModel

	filter := bson.M{}
	if opts.Tier != "" {
		filter["tier"] = opts.Tier
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("replay/mongo: list accounts: %w", err)
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) SetAccountStatus(ctx context.Context, userID string, status account.Status) error {
	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"user_id": userID}).
		Set("status", string(status)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("replay/mongo: set account status: %w", err)
	}
	if res.MatchedCount() == 0 {
		return replay.ErrAccountNotFound
	}
	return nil
}

// AdjustBalance applies the delta with a single conditional findAndModify.
// For debits the filter requires balance >= |delta|, so a document that
// would go negative is simply not matched and nothing is written.
func (s *Store) AdjustBalance(ctx context.Context, userID string, delta types.Points) (types.Points, error) {
	filter := bson.M{"user_id": userID}
	if delta.IsNegative() {
		filter["balance"] = bson.M{"$gte": delta.Negate().Int64()}
	}

	var m accountModel
	err := s.mdb.Collection(colAccounts).FindOneAndUpdate(ctx,
		filter,
		bson.M{
			"$inc": bson.M{"balance": delta.Int64()},
			"$set": bson.M{"updated_at": now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err == nil {
		return types.PointsOf(m.Balance), nil
	}
	if !isNoDocuments(err) {
		return types.ZeroPoints, fmt.Errorf("replay/mongo: adjust balance: %w", err)
	}

	// No match: either the account is missing or the guarded debit lost.
	current, getErr := s.GetAccountByUser(ctx, userID)
	if getErr != nil {
		return types.ZeroPoints, replay.ErrAccountNotFound
	}
	return current.Balance, &replay.InsufficientFundsError{
		Required: delta.Negate(),
		Current:  current.Balance,
	}
}

// ==================== Transaction Store ====================

func (s *Store) RecordTransactions(ctx context.Context, txns []*ledger.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	for _, t := range txns {
		m := toTransactionModel(t)
		_, err := s.mdb.NewInsert(m).Exec(ctx)
		if err != nil {
			// Skip duplicates so a retried journal flush stays idempotent
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return fmt.Errorf("replay/mongo: record transaction: %w", err)
		}
	}
	return nil
}

func (s *Store) QueryTransactions(ctx context.Context, userID string, opts ledger.QueryOpts) ([]*ledger.Transaction, error) {
	var models []transactionModel

	filter := bson.M{"user_id": userID}
	if opts.Reason != "" {
		filter["reason"] = string(opts.Reason)
	}
	if !opts.Start.IsZero() {
		if _, ok := filter["timestamp"]; !ok {
			filter["timestamp"] = bson.M{}
		}
		if ts, ok := filter["timestamp"].(bson.M); ok {
			ts["$gte"] = opts.Start
		}
	}
	if !opts.End.IsZero() {
		if _, ok := filter["timestamp"]; !ok {
			filter["timestamp"] = bson.M{}
		}
		if ts, ok := filter["timestamp"].(bson.M); ok {
			ts["$lt"] = opts.End
		}
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "timestamp", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("replay/mongo: query transactions: %w", err)
	}

	result := make([]*ledger.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) SummarizeTransactions(ctx context.Context, userID string, start, end time.Time) (map[ledger.Reason]ledger.Summary, error) {
	match := bson.M{"user_id": userID}
	if !start.IsZero() || !end.IsZero() {
		ts := bson.M{}
		if !start.IsZero() {
			ts["$gte"] = start
		}
		if !end.IsZero() {
			ts["$lt"] = end
		}
		match["timestamp"] = ts
	}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{
			"$group": bson.M{
				"_id":   "$reason",
				"count": bson.M{"$sum": 1},
				"total": bson.M{"$sum": "$delta"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colTransactions).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("replay/mongo: summarize transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Reason string `bson:"_id"`
		Count  int64  `bson:"count"`
		Total  int64  `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("replay/mongo: summarize decode: %w", err)
	}

	result := make(map[ledger.Reason]ledger.Summary, len(rows))
	for _, r := range rows {
		result[ledger.Reason(r.Reason)] = ledger.Summary{
			Count: r.Count,
			Total: types.PointsOf(r.Total),
		}
	}
	return result, nil
}

func (s *Store) PurgeTransactions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*transactionModel)(nil)).
		Filter(bson.M{"timestamp": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("replay/mongo: purge transactions: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Analysis Cache Store ====================

func (s *Store) GetAnalysis(ctx context.Context, fp analysis.Fingerprint) (*analysis.CacheEntry, error) {
	var m analysisModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": fp.Key()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, replay.ErrCacheMiss
		}
		return nil, fmt.Errorf("replay/mongo: get analysis: %w", err)
	}
	return fromAnalysisModel(&m)
}

func (s *Store) PutAnalysis(ctx context.Context, entry *analysis.CacheEntry) error {
	m := toAnalysisModel(entry)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Key}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":              m.Key,
			"analysis_id":      m.AnalysisID,
			"content_id":       m.ContentID,
			"platform":         m.Platform,
			"duration_seconds": m.DurationSeconds,
			"summary":          m.Summary,
			"highlights":       m.Highlights,
			"cached_at":        m.CachedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("replay/mongo: put analysis: %w", err)
	}
	return nil
}

func (s *Store) DeleteAnalysis(ctx context.Context, fp analysis.Fingerprint) error {
	_, err := s.mdb.NewDelete((*analysisModel)(nil)).
		Filter(bson.M{"_id": fp.Key()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("replay/mongo: delete analysis: %w", err)
	}
	return nil
}

func (s *Store) PurgeAnalyses(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*analysisModel)(nil)).
		Filter(bson.M{"cached_at": bson.M{"$lt": before}}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("replay/mongo: purge analyses: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all replay collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "tier", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "reason", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		colAnalyses: {
			{Keys: bson.D{{Key: "cached_at", Value: 1}}},
			{Keys: bson.D{{Key: "platform", Value: 1}, {Key: "content_id", Value: 1}}},
		},
	}
}
