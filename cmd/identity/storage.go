package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/api/handler"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/identity-system/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/identity-system/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-system/internal/pkg/config"
)

// storage bundles the adapters selected by STORAGE_DRIVER.
type storage struct {
	accounts ports.AccountRepository
	roles    ports.RoleRepository
	tokens   ports.ResetTokenRepository
	tx       ports.Transactor
	sessions ports.SessionStore
	checks   []handler.DependencyCheck
	closers  []func(context.Context) error
}

func (s *storage) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		return openMemory(log), nil
	}
	return openMongoRedis(ctx, cfg, log)
}

func openMemory(log zerolog.Logger) *storage {
	log.Warn().Msg("using in-memory storage; data is lost on restart")
	store := memory.New()
	return &storage{
		accounts: store.Accounts(),
		roles:    store.Roles(),
		tokens:   store.ResetTokens(),
		tx:       store,
		sessions: memory.NewSessionStore(),
	}
}

func openMongoRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	st := &storage{}

	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Timeout:    cfg.Mongo.Timeout,
		MaxRetries: cfg.Mongo.MaxRetries,
	}, log)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, client.Disconnect)

	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		Timeout:    cfg.Redis.Timeout,
		MaxRetries: cfg.Redis.MaxRetries,
	}, log)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	st.closers = append(st.closers, func(context.Context) error { return rdb.Close() })

	st.accounts = mongostore.NewAccountRepository(db)
	st.roles = mongostore.NewRoleRepository(db)
	st.tokens = mongostore.NewResetTokenRepository(db)
	st.tx = mongostore.NewTransactor(client)
	st.sessions = redisstore.NewSessionStore(rdb)
	st.checks = []handler.DependencyCheck{
		{Name: "mongodb", Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) }},
		{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	return st, nil
}
