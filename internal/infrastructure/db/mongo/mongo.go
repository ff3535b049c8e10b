package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 5

	collectionAccounts    = "accounts"
	collectionRoles       = "roles"
	collectionResetTokens = "password_reset_tokens"
	collectionCounters    = "counters"
)

// Config captures the settings required to establish a MongoDB connection.
type Config struct {
	URI        string
	Database   string
	Timeout    time.Duration
	MaxRetries uint64
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. Failed attempts are
// retried with exponential backoff; each attempt gets its own timeout.
func Connect(ctx context.Context, cfg Config, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}

	var client *mongo.Client
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		c, err := connectOnce(ctx, cfg.URI, timeout)
		if err != nil {
			log.Warn().Err(err).Msg("mongo not ready, retrying")
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return client, client.Database(cfg.Database), nil
}

func connectOnce(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique indexes the repositories rely on for
// race-free uniqueness.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}

	plan := map[string][]mongo.IndexModel{
		collectionAccounts:    {unique("username"), unique("email")},
		collectionRoles:       {unique("name")},
		collectionResetTokens: {unique("account_id"), unique("token")},
	}
	for coll, indexes := range plan {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
