package verification

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"profilecheck/pkg/platform/sentinel"
)

// DefaultRetention is how long finished and pending operations stay pollable.
const DefaultRetention = 15 * time.Minute

// Tracker indexes operations by id for status polling. Entries expire after
// the retention window whether or not they finished.
type Tracker struct {
	cache *cache.Cache
}

// NewTracker keeps operations for retention. Non-positive means DefaultRetention.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{cache: cache.New(retention, retention/2)}
}

// Add starts tracking op.
func (t *Tracker) Add(op *Operation) {
	t.cache.SetDefault(op.ID.String(), op)
}

// Get returns the operation with id, or sentinel.ErrNotFound.
func (t *Tracker) Get(id uuid.UUID) (*Operation, error) {
	v, ok := t.cache.Get(id.String())
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return v.(*Operation), nil
}

// Len counts tracked operations, including expired ones not yet evicted.
func (t *Tracker) Len() int {
	return t.cache.ItemCount()
}
