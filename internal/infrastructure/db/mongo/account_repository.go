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

// AccountRepository implements ports.AccountRepository. Roles are embedded
// in the account document so every read returns them eagerly.
type AccountRepository struct {
	col *mongo.Collection
	seq *sequences
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts), seq: newSequences(db)}
}

type roleDocument struct {
	ID   int64  `bson:"id"`
	Name string `bson:"name"`
}

type accountDocument struct {
	ID                    int64          `bson:"_id"`
	Username              string         `bson:"username"`
	Email                 string         `bson:"email"`
	PasswordHash          string         `bson:"password_hash"`
	Enabled               bool           `bson:"enabled"`
	AccountNonExpired     bool           `bson:"account_non_expired"`
	AccountNonLocked      bool           `bson:"account_non_locked"`
	CredentialsNonExpired bool           `bson:"credentials_non_expired"`
	Roles                 []roleDocument `bson:"roles"`
	CreatedAt             time.Time      `bson:"created_at"`
	UpdatedAt             time.Time      `bson:"updated_at"`
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// Insert allocates the next account id and stores the document. The unique
// indexes on username and email reject concurrent duplicates.
func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx, collectionAccounts)
	if err != nil {
		return nil, err
	}

	doc := toAccountDocument(account)
	doc.ID = id
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, classifyWriteError(err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"password_hash": passwordHash,
		"updated_at":    time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func toAccountDocument(a *domain.Account) accountDocument {
	roles := make([]roleDocument, 0, len(a.Roles))
	for _, role := range a.Roles {
		roles = append(roles, roleDocument{ID: role.ID, Name: string(role.Name)})
	}
	return accountDocument{
		ID:                    a.ID,
		Username:              a.Username,
		Email:                 a.Email,
		PasswordHash:          a.PasswordHash,
		Enabled:               a.Enabled,
		AccountNonExpired:     a.AccountNonExpired,
		AccountNonLocked:      a.AccountNonLocked,
		CredentialsNonExpired: a.CredentialsNonExpired,
		Roles:                 roles,
		CreatedAt:             a.CreatedAt.UTC(),
		UpdatedAt:             a.UpdatedAt.UTC(),
	}
}

func (d accountDocument) toDomain() *domain.Account {
	roles := make([]domain.Role, 0, len(d.Roles))
	for _, role := range d.Roles {
		roles = append(roles, domain.Role{ID: role.ID, Name: domain.RoleName(role.Name)})
	}
	return &domain.Account{
		ID:                    d.ID,
		Username:              d.Username,
		Email:                 d.Email,
		PasswordHash:          d.PasswordHash,
		Enabled:               d.Enabled,
		AccountNonExpired:     d.AccountNonExpired,
		AccountNonLocked:      d.AccountNonLocked,
		CredentialsNonExpired: d.CredentialsNonExpired,
		Roles:                 roles,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}
