package memory

import (
	"time"

	"recall-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SnapshotRepository keeps live-session snapshots between a disconnect and a reconnect.
type SnapshotRepository struct {
	cache *cache.Cache
}

func NewSnapshotRepository(ttl time.Duration) *SnapshotRepository {
	// Expired snapshots are purged at twice the TTL.
	c := cache.New(ttl, 2*ttl)
	return &SnapshotRepository{
		cache: c,
	}
}

func (r *SnapshotRepository) Save(snapshot *store.SessionSnapshot) {
	r.cache.Set(snapshot.SessionID, snapshot, cache.DefaultExpiration)
}

func (r *SnapshotRepository) Get(sessionID string) (*store.SessionSnapshot, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.SessionSnapshot), true
	}
	return nil, false
}

func (r *SnapshotRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
