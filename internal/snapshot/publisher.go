// Package snapshot holds the published read-only view of patient, sensor and
// reading state. Readers never lock: each publication swaps in a complete,
// immutable Snapshot.
package snapshot

import (
	"cgmd/internal/models"
	"sync/atomic"
)

type PublisherInterface interface {
	Publish(s *models.Snapshot) *models.Snapshot
	Current() *models.Snapshot
}

type Publisher struct {
	current atomic.Pointer[models.Snapshot]
	version atomic.Uint64
}

// Publish stamps s with the next version and makes it current. s must not be
// modified afterwards.
func (p *Publisher) Publish(s *models.Snapshot) *models.Snapshot {
	if s == nil {
		return p.Current()
	}
	s.Version = p.version.Add(1)
	p.current.Store(s)
	return s
}

// Current returns the latest snapshot or nil before the first publication.
func (p *Publisher) Current() *models.Snapshot {
	return p.current.Load()
}

func NewPublisher() PublisherInterface {
	return &Publisher{}
}
