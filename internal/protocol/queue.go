package protocol

import (
	"slices"

	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

// Queue is an outbox of pending updates ordered by id. It holds no lock;
// the owning client serializes access.
type Queue struct {
	items []Update
}

// Add inserts u in id order. An update whose id is already queued is
// ignored. Returns whether u was inserted.
func (q *Queue) Add(u Update) bool {
	i, found := slices.BinarySearchFunc(q.items, u.id, func(e Update, id uid.ID) int {
		return e.id.Compare(id)
	})
	if found {
		return false
	}
	q.items = slices.Insert(q.items, i, u)
	return true
}

// Prune removes every update with id <= ack and returns how many were
// removed.
func (q *Queue) Prune(ack uid.ID) int {
	n, found := slices.BinarySearchFunc(q.items, ack, func(e Update, id uid.ID) int {
		return e.id.Compare(id)
	})
	if found {
		n++
	}
	if n == 0 {
		return 0
	}
	q.items = slices.Delete(q.items, 0, n)
	return n
}

// Items returns a snapshot in ascending id order.
func (q *Queue) Items() []Update {
	return slices.Clone(q.items)
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Last returns the highest queued id, or uid.Invalid when empty.
func (q *Queue) Last() uid.ID {
	if len(q.items) == 0 {
		return uid.Invalid
	}
	return q.items[len(q.items)-1].id
}

// Clear drops everything.
func (q *Queue) Clear() {
	q.items = nil
}
