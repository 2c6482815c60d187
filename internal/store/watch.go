package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is the result set of a watched query at one point in time.
// Every snapshot owns its documents; consumers may keep them.
type Snapshot struct {
	Docs     []Document
	ReadTime time.Time
}

// Subscription delivers a fresh snapshot of its query after every write to
// the queried collection. Only the latest undelivered snapshot is kept.
type Subscription struct {
	q      Query
	store  *Store
	kick   chan struct{}
	out    chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Watch subscribes to q. The first snapshot is delivered immediately. The
// subscription ends when ctx is cancelled or Close is called.
func (s *Store) Watch(ctx context.Context, q Query) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		q:      q,
		store:  s,
		kick:   make(chan struct{}, 1),
		out:    make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	subs := s.watchers[q.Collection]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		s.watchers[q.Collection] = subs
	}
	subs[sub] = struct{}{}
	s.mu.Unlock()

	sub.kick <- struct{}{}
	go sub.run(ctx)
	return sub, nil
}

// Snapshots returns the delivery channel. It is closed when the subscription ends.
func (sub *Subscription) Snapshots() <-chan Snapshot {
	return sub.out
}

// Close ends the subscription and waits for its delivery goroutine to exit.
func (sub *Subscription) Close() {
	sub.once.Do(sub.cancel)
	<-sub.done
}

func (sub *Subscription) run(ctx context.Context) {
	defer close(sub.done)
	defer close(sub.out)
	defer sub.store.unregister(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.kick:
		}

		docs, err := sub.store.Query(ctx, sub.q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("watch query failed", "collection", sub.q.Collection, "error", err)
			continue
		}
		snap := Snapshot{Docs: docs, ReadTime: sub.store.now()}

		select {
		case <-sub.out:
		default:
		}
		select {
		case sub.out <- snap:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) unregister(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subs := s.watchers[sub.q.Collection]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.watchers, sub.q.Collection)
		}
	}
}

// WatcherCount returns the number of live subscriptions on a collection.
func (s *Store) WatcherCount(coll string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[coll])
}

func (s *Store) notify(coll string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.watchers[coll] {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}
