/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lock serializes booking writes per (resource, date) key.
package lock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/friendsincode/recruitd/internal/telemetry"
)

// Locker acquires a set of keys as a unit. The returned function releases
// all of them and must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// InterviewerKey names the write lock for an interviewer's day.
func InterviewerKey(interviewerID, date string) string {
	return "interviewer:" + interviewerID + ":" + date
}

// RoomKey names the write lock for a room's day.
func RoomKey(roomID, date string) string {
	return "room:" + roomID + ":" + date
}

// normalize sorts and dedupes keys so every caller acquires in one global
// order and two multi-key lockers cannot deadlock each other.
func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

type entry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the key
	refs int
}

// Local is an in-process keyed mutex. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

// Lock blocks until every key is held or ctx is done.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	start := time.Now()
	keys = normalize(keys)

	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlockKey(held[i])
		}
	}

	for _, key := range keys {
		if err := l.lockKey(ctx, key); err != nil {
			release()
			return nil, err
		}
		held = append(held, key)
	}
	telemetry.LockWaitDuration.WithLabelValues("local").Observe(time.Since(start).Seconds())

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *Local) lockKey(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(key, e)
		return ctx.Err()
	}
}

func (l *Local) unlockKey(key string) {
	l.mu.Lock()
	e := l.entries[key]
	l.mu.Unlock()
	if e == nil {
		return
	}
	<-e.ch
	l.drop(key, e)
}

func (l *Local) drop(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// size reports tracked keys; used by tests to check entries are released.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
