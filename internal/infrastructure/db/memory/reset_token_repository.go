package memory

import (
	"context"
	"time"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// ResetTokenRepository implements ports.ResetTokenRepository over a Store.
type ResetTokenRepository struct {
	s *Store
}

func (r *ResetTokenRepository) FindByToken(ctx context.Context, token string) (*domain.ResetToken, error) {
	defer r.s.lock(ctx)()
	t := r.byToken(token)
	if t == nil {
		return nil, domain.ErrTokenNotFound
	}
	out := *t
	return &out, nil
}

func (r *ResetTokenRepository) ReplaceForAccount(ctx context.Context, accountID int64, token string, expiry time.Time) (*domain.ResetToken, error) {
	defer r.s.lock(ctx)()
	if other := r.byToken(token); other != nil && other.AccountID != accountID {
		return nil, &domain.DuplicateKeyError{Field: "token"}
	}

	now := r.s.now()
	t, ok := r.s.tokens[accountID]
	if !ok {
		t = &domain.ResetToken{
			ID:        r.s.nextID("reset_tokens"),
			AccountID: accountID,
			CreatedAt: now,
		}
		r.s.tokens[accountID] = t
	}
	t.Token = token
	t.ExpiryTime = expiry
	t.Used = false
	t.UpdatedAt = now

	out := *t
	return &out, nil
}

func (r *ResetTokenRepository) MarkUsed(ctx context.Context, token string) error {
	defer r.s.lock(ctx)()
	t := r.byToken(token)
	if t == nil || t.Used {
		return domain.ErrTokenUsed
	}
	t.Used = true
	t.UpdatedAt = r.s.now()
	return nil
}

func (r *ResetTokenRepository) byToken(token string) *domain.ResetToken {
	for _, t := range r.s.tokens {
		if t.Token == token {
			return t
		}
	}
	return nil
}
