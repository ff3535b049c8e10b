package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor implements ports.Transactor with a MongoDB session transaction.
// It requires a replica set or sharded cluster.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction runs fn in a transaction; a nested call joins the
// transaction already carried by ctx. The driver may re-run fn on a transient
// transaction error.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
