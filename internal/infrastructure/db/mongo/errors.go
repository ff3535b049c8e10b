package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// classifyWriteError turns a unique-index violation into a
// *domain.DuplicateKeyError naming the violated field, and returns any other
// error unchanged.
func classifyWriteError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	return &domain.DuplicateKeyError{Field: duplicateField(err), Err: err}
}

// duplicateField reads the first key of keyPattern from the server's write
// error, e.g. {"keyPattern": {"email": 1}} yields "email".
func duplicateField(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if f := keyPatternField(e.Raw); f != "" {
				return f
			}
		}
	}
	var cmd mongo.CommandError
	if errors.As(err, &cmd) {
		return keyPatternField(cmd.Raw)
	}
	return ""
}

func keyPatternField(raw bson.Raw) string {
	if len(raw) == 0 {
		return ""
	}
	pattern, ok := raw.Lookup("keyPattern").DocumentOK()
	if !ok {
		return ""
	}
	elems, err := pattern.Elements()
	if err != nil || len(elems) == 0 {
		return ""
	}
	return elems[0].Key()
}
