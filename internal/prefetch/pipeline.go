/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package prefetch keeps a bounded buffer of upcoming picks whose images are
// resolved in the background, so the next round never waits on a fetch
// that could have started earlier.
package prefetch

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Seednode/silhouette/internal/dedup"
)

var (
	ErrEmptyPool = errors.New("pool is empty")
	ErrNoAssets  = errors.New("no resolvable assets in pool")
	ErrClosed    = errors.New("pipeline closed")
)

// future is the pending or settled resolution of one key. It is written
// once, by the goroutine that resolves it.
type future struct {
	done  chan struct{}
	asset *Asset
	err   error
}

func (f *future) settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

type Options struct {
	// Capacity is the target number of buffered picks.
	Capacity int
	Ordering Ordering
	// MaxSkips bounds consecutive unavailable picks in one ConsumeNext.
	// Zero means twice the capacity.
	MaxSkips int
	// Rand chooses entities; nil uses a randomly seeded generator.
	Rand   *rand.Rand
	Logger zerolog.Logger
}

// Pipeline owns the prefetch buffer and the asset cache of one session.
type Pipeline struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	resolver Resolver
	tracker  *dedup.Tracker
	ordering Ordering
	capacity int
	maxSkips int
	log      zerolog.Logger

	mu     sync.Mutex
	rng    *rand.Rand
	pool   []string
	gen    uint64
	seq    uint64
	cache  map[Key]*future
	queue  queue
	closed bool
}

func New(resolver Resolver, tracker *dedup.Tracker, opts Options) *Pipeline {
	if opts.Capacity < 1 {
		opts.Capacity = 1
	}

	if opts.MaxSkips < 1 {
		opts.MaxSkips = 2 * opts.Capacity
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		ctx:      ctx,
		cancel:   cancel,
		resolver: resolver,
		tracker:  tracker,
		ordering: opts.Ordering,
		capacity: opts.Capacity,
		maxSkips: opts.MaxSkips,
		log:      opts.Logger,
		rng:      opts.Rand,
		cache:    make(map[Key]*future),
		queue:    newQueue(opts.Ordering),
	}
}

func (p *Pipeline) Capacity() int {
	return p.capacity
}

// Len is the number of buffered picks, resolved or not.
func (p *Pipeline) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.queue.len()
}

// Pending lists the buffered picks in the order they would be consumed.
func (p *Pipeline) Pending() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.queue.keys()
}

// Pool returns a copy of the active pool.
func (p *Pipeline) Pool() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.pool)
}

// Lookup returns the asset for key if the current cache holds it resolved.
func (p *Pipeline) Lookup(key Key) (*Asset, bool) {
	p.mu.Lock()
	f, ok := p.cache[key]
	p.mu.Unlock()

	if !ok || !f.settled() || f.err != nil {
		return nil, false
	}

	return f.asset, true
}

// Rebuild replaces the active pool and discards the buffer and the cache.
// An empty pool is rejected and leaves the pipeline untouched.
func (p *Pipeline) Rebuild(pool []string) error {
	if len(pool) == 0 {
		return ErrEmptyPool
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()

		return ErrClosed
	}

	p.pool = slices.Clone(pool)
	p.gen++
	p.cache = make(map[Key]*future)
	p.queue = newQueue(p.ordering)
	p.tracker.Reset()

	p.log.Debug().
		Uint64("generation", p.gen).
		Int("pool", len(p.pool)).
		Msg("rebuilt prefetch pipeline")
	p.mu.Unlock()

	p.RefillToCapacity()

	return nil
}

// EnqueueRandomPick buffers a random entity with a fresh variant and starts
// resolving it without waiting for the result.
func (p *Pipeline) EnqueueRandomPick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enqueueLocked()
}

// RefillToCapacity enqueues picks until the buffer holds Capacity entries.
func (p *Pipeline) RefillToCapacity() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.queue.len() < p.capacity && len(p.pool) > 0 && !p.closed {
		p.enqueueLocked()
	}
}

// ConsumeNext takes the head of the buffer and waits until it is resolved.
// Unavailable picks are skipped. Every consumed pick is backfilled at once,
// and a full refill is scheduled in the background.
func (p *Pipeline) ConsumeNext(ctx context.Context) (*Asset, error) {
	for skips := 0; ; {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()

			return nil, ErrClosed
		}

		if len(p.pool) == 0 {
			p.mu.Unlock()

			return nil, ErrEmptyPool
		}

		next, ok := p.queue.pop()
		if !ok {
			p.enqueueLocked()
			p.mu.Unlock()

			continue
		}

		f := p.resolveLocked(next.key)
		gen := p.gen
		p.enqueueLocked()
		p.mu.Unlock()

		p.scheduleRefill()

		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		p.mu.Lock()
		stale := gen != p.gen
		p.mu.Unlock()

		if stale {
			continue
		}

		if f.err != nil {
			skips++

			p.log.Debug().
				Err(f.err).
				Stringer("pick", next.key).
				Int("skips", skips).
				Msg("skipping unavailable pick")

			if skips >= p.maxSkips {
				return nil, ErrNoAssets
			}

			continue
		}

		return f.asset, nil
	}
}

// Close cancels in-flight resolutions and waits for them to return.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pipeline) enqueueLocked() {
	if len(p.pool) == 0 || p.closed {
		return
	}

	entity := p.pool[p.rng.IntN(len(p.pool))]
	key := Key{Entity: entity, Variant: p.tracker.Pick(entity)}

	p.seq++
	p.queue.push(pick{
		key:       key,
		seq:       p.seq,
		remaining: p.tracker.Remaining(entity),
	})

	p.resolveLocked(key)
}

// resolveLocked returns the future for key in the current cache, starting a
// resolution if there is none yet. The goroutine only ever writes to the
// future it was started for, which belongs to the cache of its generation.
func (p *Pipeline) resolveLocked(key Key) *future {
	if f, ok := p.cache[key]; ok {
		return f
	}

	f := &future{done: make(chan struct{})}
	p.cache[key] = f

	if p.closed {
		f.err = ErrClosed
		close(f.done)

		return f
	}

	gen := p.gen

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		asset, err := p.resolver.Resolve(p.ctx, key)
		f.asset, f.err = asset, err
		close(f.done)

		p.mu.Lock()
		superseded := gen != p.gen
		p.mu.Unlock()

		if superseded {
			p.log.Debug().
				Stringer("pick", key).
				Uint64("generation", gen).
				Msg("discarded resolution from superseded pool")
		}
	}()

	return f
}

func (p *Pipeline) scheduleRefill() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.RefillToCapacity()
	}()
}
