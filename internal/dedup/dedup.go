/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package dedup tracks which image variants of each entity were shown
// recently, so that no variant repeats until all of them have been used.
package dedup

import (
	"math/rand/v2"
	"sync"
)

type history struct {
	epoch uint64
	used  map[int]struct{}
}

// Tracker hands out variant indices in [0, k) per entity.
type Tracker struct {
	mu    sync.Mutex
	k     int
	rng   *rand.Rand
	epoch uint64
	seen  map[string]*history
}

// New returns a tracker for k variants per entity. A nil rng uses a randomly
// seeded generator.
func New(k int, rng *rand.Rand) *Tracker {
	if k < 1 {
		k = 1
	}

	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Tracker{
		k:    k,
		rng:  rng,
		seen: make(map[string]*history),
	}
}

func (t *Tracker) Variants() int {
	return t.k
}

// Pick draws an unused variant for entity, clearing its history first if
// every variant has already been used.
func (t *Tracker) Pick(entity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.historyLocked(entity)
	if len(h.used) >= t.k {
		clear(h.used)
	}

	var index int
	for {
		index = t.rng.IntN(t.k)
		if _, used := h.used[index]; !used {
			break
		}
	}

	h.used[index] = struct{}{}

	return index
}

// Remaining reports how many variants of entity are still unused.
func (t *Tracker) Remaining(entity string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.seen[entity]
	if !ok || h.epoch != t.epoch {
		return t.k
	}

	return t.k - len(h.used)
}

// Reset forgets all histories. Entries are cleared lazily, the first time
// each entity is touched afterwards.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.epoch++
	t.mu.Unlock()
}

func (t *Tracker) historyLocked(entity string) *history {
	h, ok := t.seen[entity]
	if !ok {
		h = &history{epoch: t.epoch, used: make(map[int]struct{}, t.k)}
		t.seen[entity] = h

		return h
	}

	if h.epoch != t.epoch {
		clear(h.used)
		h.epoch = t.epoch
	}

	return h
}
