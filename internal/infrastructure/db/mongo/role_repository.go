package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RoleRepository implements ports.RoleRepository.
type RoleRepository struct {
	col *mongo.Collection
	seq *sequences
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{col: db.Collection(collectionRoles), seq: newSequences(db)}
}

func (r *RoleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDocument
	err := r.col.FindOne(ctx, bson.M{"name": string(name)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: doc.ID, Name: domain.RoleName(doc.Name)}, nil
}

// Insert stores a new role row. A concurrent insert of the same name fails
// on the unique name index with *domain.DuplicateKeyError.
func (r *RoleRepository) Insert(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.next(ctx, collectionRoles)
	if err != nil {
		return nil, err
	}
	// The role document is stored with _id mirroring the numeric id.
	if _, err := r.col.InsertOne(ctx, bson.M{"_id": id, "id": id, "name": string(name)}); err != nil {
		return nil, classifyWriteError(err)
	}
	return &domain.Role{ID: id, Name: name}, nil
}
