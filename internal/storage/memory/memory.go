// Package memory holds process-local catalog and order stores. They back
// the "memory" store driver used in development and in handler tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// docs is an id-keyed collection with creation order, shared by the
// product and order stores.
type docs[T any] struct {
	mu    sync.RWMutex
	byID  map[string]*entry[T]
	now   func() time.Time
	newID func() string
}

type entry[T any] struct {
	doc       T
	seq       uint64
	createdAt time.Time
}

var seq struct {
	sync.Mutex
	n uint64
}

func nextSeq() uint64 {
	seq.Lock()
	defer seq.Unlock()
	seq.n++
	return seq.n
}

func newDocs[T any]() *docs[T] {
	return &docs[T]{
		byID:  make(map[string]*entry[T]),
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// newest returns the documents ordered by creation time, newest first.
// Documents created within the same clock tick keep insertion order.
func (d *docs[T]) newest() []*entry[T] {
	out := make([]*entry[T], 0, len(d.byID))
	for _, e := range d.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.After(out[j].createdAt)
		}
		return out[i].seq > out[j].seq
	})
	return out
}
