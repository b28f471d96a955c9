package sim

import (
	"sync"

	"github.com/san-kum/p3md/internal/dynamo"
)

// SnapshotPool recycles dump buffers between dumps.
type SnapshotPool struct {
	pool sync.Pool
	size int
}

func NewSnapshotPool(particles int) *SnapshotPool {
	return &SnapshotPool{
		size: particles,
		pool: sync.Pool{
			New: func() interface{} {
				s := &dynamo.Snapshot{}
				s.Resize(particles)
				return s
			},
		},
	}
}

func (p *SnapshotPool) Get() *dynamo.Snapshot {
	s := p.pool.Get().(*dynamo.Snapshot)
	s.Resize(p.size)
	return s
}

func (p *SnapshotPool) Put(s *dynamo.Snapshot) {
	if s == nil || cap(s.Positions) < p.size {
		return
	}
	p.pool.Put(s)
}
