package ports

import "context"

// Transactor runs fn inside one storage transaction. Repositories called with
// the ctx handed to fn take part in it; a non-nil return rolls everything back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
