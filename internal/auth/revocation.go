package auth

import (
	"context"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/store"
)

const revokedPrefix = "revoked:"

// Revocations is a deny-list of token ids kept until each token would have
// expired anyway.
type Revocations struct {
	kv store.KV
}

func NewRevocations(kv store.KV) *Revocations {
	return &Revocations{kv: kv}
}

func (r *Revocations) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return r.kv.Set(ctx, revokedPrefix+jti, "1", ttl)
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return r.kv.Exists(ctx, revokedPrefix+jti)
}
