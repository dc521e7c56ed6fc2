// Package live implements the live collection pattern: an in-memory mirror
// of a backend collection that is replaced wholesale on every change and
// re-broadcast to subscribers as a complete snapshot. Consumers never merge
// diffs, so the mirror cannot silently diverge from backend state.
package live

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Lister is the subset of a collection store the feed requires.
type Lister[T any] interface {
	List(ctx context.Context) ([]T, error)
}

// Feed mirrors one backend collection. Mutations go through the store;
// callers invoke Refresh afterwards so every subscriber receives the new
// full snapshot.
type Feed[T any] struct {
	lister Lister[T]
	logger *slog.Logger

	mu     sync.Mutex
	mirror []T
	subs   map[int]chan []T
	nextID int
}

func NewFeed[T any](lister Lister[T], logger *slog.Logger) *Feed[T] {
	return &Feed[T]{
		lister: lister,
		logger: logger,
		subs:   make(map[int]chan []T),
	}
}

// Refresh reloads the complete collection from the backend, replaces the
// mirror, and broadcasts the snapshot to all subscribers.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	items, err := f.lister.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh collection: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mirror = items
	for _, ch := range f.subs {
		deliver(ch, slices.Clone(items))
	}
	f.logger.Debug("collection refreshed", "count", len(items), "subscribers", len(f.subs))
	return nil
}

// Snapshot returns a copy of the current mirror.
func (f *Feed[T]) Snapshot() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.mirror)
}

// Subscribe registers a listener. The channel fires once immediately with
// the current snapshot and then on every refresh. Slow consumers coalesce:
// only the latest snapshot is retained. The returned cancel func stops
// delivery and releases the listener; it is safe to call more than once.
func (f *Feed[T]) Subscribe() (<-chan []T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan []T, 1)
	f.subs[id] = ch
	ch <- slices.Clone(f.mirror)

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// deliver replaces any undelivered snapshot with the latest one.
func deliver[T any](ch chan []T, snapshot []T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

// Filter returns the items whose search fields contain query as a
// case-insensitive substring. An empty query returns items unchanged.
// Missing fields are empty strings and simply never match.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	var out []T
	for _, item := range items {
		for _, field := range fields(item) {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
