package application

import (
	"sync"

	"github.com/ChuLiYu/widgetsync/internal/client"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	clients map[uid.ID]*client.Client
}

// registry maps client ids to clients. Lookups on different shards never
// contend, so a slow synchronize on one client only blocks its own shard
// for the duration of the lookup.
type registry struct {
	shards [shardCount]*shard
}

func newRegistry() *registry {
	r := &registry{}
	for i := range r.shards {
		r.shards[i] = &shard{clients: make(map[uid.ID]*client.Client)}
	}
	return r
}

func (r *registry) shardFor(id uid.ID) *shard {
	return r.shards[uint64(id)%shardCount]
}

func (r *registry) Load(id uid.ID) (*client.Client, bool) {
	s := r.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

func (r *registry) Store(c *client.Client) {
	s := r.shardFor(c.ID())
	s.mu.Lock()
	s.clients[c.ID()] = c
	s.mu.Unlock()
}

// Delete removes id and returns the removed client. Only one caller gets
// ok=true for a given client.
func (r *registry) Delete(id uid.ID) (*client.Client, bool) {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if ok {
		delete(s.clients, id)
	}
	return c, ok
}

// Range calls fn on a snapshot of each shard, so fn may call Delete.
func (r *registry) Range(fn func(*client.Client)) {
	for _, s := range r.shards {
		s.mu.RLock()
		snapshot := make([]*client.Client, 0, len(s.clients))
		for _, c := range s.clients {
			snapshot = append(snapshot, c)
		}
		s.mu.RUnlock()

		for _, c := range snapshot {
			fn(c)
		}
	}
}

func (r *registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.clients)
		s.mu.RUnlock()
	}
	return n
}
