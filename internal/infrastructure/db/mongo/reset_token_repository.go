package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// ResetTokenRepository implements ports.ResetTokenRepository. A unique index
// on account_id keeps one row per account; a unique index on token keeps
// tokens unambiguous.
type ResetTokenRepository struct {
	col *mongo.Collection
	seq *sequences
}

func NewResetTokenRepository(db *mongo.Database) *ResetTokenRepository {
	return &ResetTokenRepository{col: db.Collection(collectionResetTokens), seq: newSequences(db)}
}

type resetTokenDocument struct {
	ID         int64     `bson:"_id"`
	AccountID  int64     `bson:"account_id"`
	Token      string    `bson:"token"`
	ExpiryTime time.Time `bson:"expiry_time"`
	Used       bool      `bson:"used"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (d resetTokenDocument) toDomain() *domain.ResetToken {
	return &domain.ResetToken{
		ID:         d.ID,
		AccountID:  d.AccountID,
		Token:      d.Token,
		ExpiryTime: d.ExpiryTime,
		Used:       d.Used,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r *ResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc resetTokenDocument
	if err := r.col.FindOne(ctx, bson.M{"token": token}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return doc.toDomain(), nil
}

// ReplaceForAccount rewrites the account's existing row in place, or inserts
// one when the account has never requested a reset.
func (r *ResetTokenRepository) ReplaceForAccount(ctx context.Context, accountID int64, token string, expiry time.Time) (*domain.ResetToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc, err := r.replace(ctx, accountID, token, expiry, now)
	if err == nil {
		return doc.toDomain(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	id, err := r.seq.next(ctx, collectionResetTokens)
	if err != nil {
		return nil, err
	}
	fresh := resetTokenDocument{
		ID:         id,
		AccountID:  accountID,
		Token:      token,
		ExpiryTime: expiry.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// A concurrent insert for the same account fails on the account_id index
	// and aborts the surrounding transaction; the transactor retries the whole
	// callback, which then takes the replace path above.
	if _, err := r.col.InsertOne(ctx, fresh); err != nil {
		return nil, classifyWriteError(err)
	}
	return fresh.toDomain(), nil
}

func (r *ResetTokenRepository) replace(ctx context.Context, accountID int64, token string, expiry, now time.Time) (*resetTokenDocument, error) {
	var doc resetTokenDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$set": bson.M{
			"token":       token,
			"expiry_time": expiry.UTC(),
			"used":        false,
			"updated_at":  now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, classifyWriteError(err)
	}
	return &doc, nil
}

// MarkUsed flips used only on a row that is still unused, so concurrent
// consumers cannot both succeed.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"token": token, "used": false},
		bson.M{"$set": bson.M{"used": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mark reset token used: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTokenUsed
	}
	return nil
}
