package auth

import (
	"context"
	"sync"
	"time"
)

// Denylist records revoked token IDs until the token would have expired.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RevocationVerifier rejects tokens whose ID is on the denylist.
type RevocationVerifier struct {
	next     Verifier
	denylist Denylist
}

func NewRevocationVerifier(next Verifier, denylist Denylist) *RevocationVerifier {
	return &RevocationVerifier{next: next, denylist: denylist}
}

func (v *RevocationVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return claims, nil
	}
	revoked, err := v.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

// MemoryDenylist keeps revocations in process. Expired entries are pruned
// on write.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, id)
		}
	}
	if until.After(now) {
		d.entries[tokenID] = until
	}
	return nil
}

func (d *MemoryDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[tokenID]
	return ok && exp.After(d.now()), nil
}
