// Package store holds check records in memory. Running checks never
// expire; terminal checks are retained for a configurable window and then
// swept.
package store

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/model"
)

// ErrNotFound is returned for unknown or expired check IDs
var ErrNotFound = fmt.Errorf("check not found")

// Store persists check snapshots. Every Save and Get deep-copies, so a
// stored record is never mutated through a shared slice by the worker or
// a handler.
type Store struct {
	cache *gocache.Cache
}

func New(cfg config.StoreConfig) *Store {
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}
	return &Store{cache: gocache.New(cfg.RetentionTTL, sweep)}
}

// Save stores a snapshot of the check. Terminal checks get the retention
// TTL; running checks never expire, since a worker still owns them.
func (s *Store) Save(check *model.Check) {
	ttl := gocache.NoExpiration
	if check.Status.Terminal() {
		ttl = gocache.DefaultExpiration
	}
	s.cache.Set(check.ID, check.Clone(), ttl)
}

// Get returns a copy of the check, or ErrNotFound
func (s *Store) Get(id string) (*model.Check, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return v.(*model.Check).Clone(), nil
}

// Count returns the number of retained checks
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
