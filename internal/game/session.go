/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game holds one player's game session: the active pool, the
// current round, and the streak counters.
package game

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/silhouette/internal/catalog"
	"github.com/Seednode/silhouette/internal/prefetch"
	"github.com/Seednode/silhouette/internal/settings"
	"github.com/Seednode/silhouette/internal/share"
	"github.com/Seednode/silhouette/internal/store"
)

var (
	ErrNoRound         = errors.New("no round in progress")
	ErrAlreadyRevealed = errors.New("answer already revealed")
	ErrNotRevealed     = errors.New("answer not revealed yet")
	ErrRejected        = errors.New("settings rejected")
	ErrSuperseded      = errors.New("pool changed while loading")
)

// DefaultFadeIn matches the transition the browser client animates.
const DefaultFadeIn = 75 * time.Millisecond

// Phase is the state of the current round.
type Phase int

const (
	AwaitingGuess Phase = iota
	Revealed
)

func (p Phase) String() string {
	if p == Revealed {
		return "revealed"
	}

	return "awaiting_guess"
}

// Pipeline supplies ready assets from the active pool.
type Pipeline interface {
	Rebuild(pool []string) error
	ConsumeNext(ctx context.Context) (*prefetch.Asset, error)
	Pool() []string
	Close()
}

// Celebrator is notified of correct guesses. It must not block.
type Celebrator interface {
	Celebrate(entity string, streak int)
}

type CelebratorFunc func(entity string, streak int)

func (f CelebratorFunc) Celebrate(entity string, streak int) { f(entity, streak) }

// Presentation is everything the display needs to show a new round.
type Presentation struct {
	Round  uint64
	Key    prefetch.Key
	Asset  *prefetch.Asset
	FadeIn time.Duration
}

// Outcome is the result of one guess.
type Outcome struct {
	Correct bool
	Answer  string
	Streak  int
	Best    int
}

// State is a read-only view of the session for rendering.
type State struct {
	Round          uint64
	Phase          Phase
	Correct        bool
	Answer         string
	InputEnabled   bool
	ShowSilhouette bool
	Streak         int
	Best           int
	Settings       settings.Settings
}

type Config struct {
	Catalog    *catalog.Catalog
	Pipeline   Pipeline
	Store      store.Store
	Player     string
	FadeIn     time.Duration
	Celebrator Celebrator
	Logger     zerolog.Logger
}

type round struct {
	seq            uint64
	asset          *prefetch.Asset
	phase          Phase
	correct        bool
	showSilhouette bool
}

func (r *round) entity() string {
	return r.asset.Key.Entity
}

type Session struct {
	catalog    *catalog.Catalog
	pipeline   Pipeline
	store      store.Store
	player     string
	fadeIn     time.Duration
	celebrator Celebrator
	log        zerolog.Logger

	mu       sync.Mutex
	settings settings.Settings
	epoch    uint64 // bumped on every pool rebuild
	seq      uint64
	current  *round
	streak   int
	best     int
}

// New restores the player's settings and best streak and builds the pool.
// Stored state that cannot be read falls back to defaults.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.FadeIn <= 0 {
		cfg.FadeIn = DefaultFadeIn
	}

	s := &Session{
		catalog:    cfg.Catalog,
		pipeline:   cfg.Pipeline,
		store:      cfg.Store,
		player:     cfg.Player,
		fadeIn:     cfg.FadeIn,
		celebrator: cfg.Celebrator,
		log:        cfg.Logger,
	}

	categories := cfg.Catalog.Categories()

	blob, err := s.store.Settings(ctx, s.player)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load settings")
	}

	s.settings, err = settings.Parse(blob, categories)
	if err != nil {
		s.log.Debug().Err(err).Msg("using default settings")
	}

	s.best, err = s.store.BestStreak(ctx, s.player)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load best streak")
	}

	pool, err := s.catalog.Pool(s.settings.Filters())
	if errors.Is(err, catalog.ErrEmptyPool) {
		s.settings = settings.Default(categories)
		pool, err = s.catalog.Pool(s.settings.Filters())
	}
	if err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}

	if err := s.pipeline.Rebuild(pool); err != nil {
		return nil, fmt.Errorf("build pool: %w", err)
	}

	return s, nil
}

// ShowNext consumes the next ready asset and starts a new round with it.
// It returns ErrSuperseded if the pool was rebuilt while the asset loaded.
func (s *Session) ShowNext(ctx context.Context) (Presentation, error) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	asset, err := s.pipeline.ConsumeNext(ctx)
	if err != nil {
		return Presentation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return Presentation{}, ErrSuperseded
	}

	s.seq++
	s.current = &round{
		seq:            s.seq,
		asset:          asset,
		phase:          AwaitingGuess,
		showSilhouette: true,
	}

	return Presentation{
		Round:  s.seq,
		Key:    asset.Key,
		Asset:  asset,
		FadeIn: s.fadeIn,
	}, nil
}

// SubmitGuess checks text against the current entity, ignoring case and
// surrounding whitespace. A wrong guess resets the streak and leaves the
// round open.
func (s *Session) SubmitGuess(ctx context.Context, text string) (Outcome, error) {
	s.mu.Lock()

	r := s.current
	switch {
	case r == nil:
		s.mu.Unlock()

		return Outcome{}, ErrNoRound
	case r.phase == Revealed:
		s.mu.Unlock()

		return Outcome{}, ErrAlreadyRevealed
	}

	if strings.ToLower(strings.TrimSpace(text)) != strings.ToLower(r.entity()) {
		s.streak = 0
		out := Outcome{Streak: s.streak, Best: s.best}
		s.mu.Unlock()

		return out, nil
	}

	r.phase = Revealed
	r.correct = true
	r.showSilhouette = false
	s.streak++

	record := s.streak > s.best
	if record {
		s.best = s.streak
	}

	out := Outcome{
		Correct: true,
		Answer:  r.entity(),
		Streak:  s.streak,
		Best:    s.best,
	}
	s.mu.Unlock()

	// The store and the celebrator run outside the lock.
	if record {
		best, err := s.store.RecordStreak(ctx, s.player, out.Streak)
		if err != nil {
			s.log.Warn().Err(err).Msg("could not save best streak")
		} else if best > out.Best {
			s.mu.Lock()
			s.best = max(s.best, best)
			out.Best = s.best
			s.mu.Unlock()
		}
	}

	if s.celebrator != nil {
		s.celebrator.Celebrate(out.Answer, out.Streak)
	}

	return out, nil
}

// Skip reveals the answer without scoring and resets the streak.
func (s *Session) Skip() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.current
	switch {
	case r == nil:
		return "", ErrNoRound
	case r.phase == Revealed:
		return "", ErrAlreadyRevealed
	}

	r.phase = Revealed
	r.correct = false
	r.showSilhouette = false
	s.streak = 0

	return r.entity(), nil
}

// Advance moves from a revealed round to the next one.
func (s *Session) Advance(ctx context.Context) (Presentation, error) {
	var err error

	s.mu.Lock()
	switch r := s.current; {
	case r == nil:
		err = ErrNoRound
	case r.phase != Revealed:
		err = ErrNotRevealed
	}
	s.mu.Unlock()

	if err != nil {
		return Presentation{}, err
	}

	return s.ShowNext(ctx)
}

// ToggleReveal swaps between the silhouette and the full image of a
// revealed round, and reports whether the silhouette is now showing.
func (s *Session) ToggleReveal() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.current
	switch {
	case r == nil:
		return false, ErrNoRound
	case r.phase != Revealed:
		return false, ErrNotRevealed
	}

	r.showSilhouette = !r.showSilhouette

	return r.showSilhouette, nil
}

// ApplySettings stores next and rebuilds the pool when the filters changed.
// A change that would empty the pool is rejected and the previous settings
// stay in effect. A rebuild resets the streak; the caller shows a fresh
// round afterwards.
func (s *Session) ApplySettings(ctx context.Context, next settings.Settings) (bool, error) {
	s.mu.Lock()
	prev := s.settings
	s.mu.Unlock()

	rebuild := next.IncludeForms != prev.IncludeForms || !maps.Equal(next.Categories, prev.Categories)

	if rebuild {
		pool, err := s.catalog.Pool(next.Filters())
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrRejected, err)
		}

		if err := s.pipeline.Rebuild(pool); err != nil {
			return false, fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	s.mu.Lock()
	s.settings = next.Clone()
	if rebuild {
		s.epoch++
		s.streak = 0
		s.current = nil
	}
	s.mu.Unlock()

	blob, err := next.Encode()
	if err == nil {
		err = s.store.SaveSettings(ctx, s.player, blob)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("could not save settings")
	}

	return rebuild, nil
}

// Suggestions is the sorted autocomplete list, empty when autocomplete is off.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	enabled := s.settings.EnableAutocomplete
	s.mu.Unlock()

	if !enabled {
		return nil
	}

	list := s.pipeline.Pool()
	slices.Sort(list)

	return slices.Compact(list)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Streak:   s.streak,
		Best:     s.best,
		Settings: s.settings.Clone(),
	}

	if r := s.current; r != nil {
		st.Round = r.seq
		st.Phase = r.phase
		st.Correct = r.correct
		st.InputEnabled = r.phase == AwaitingGuess
		st.ShowSilhouette = r.showSilhouette
		if r.phase == Revealed {
			st.Answer = r.entity()
		}
	}

	return st
}

// Current returns the asset of the round in progress.
func (s *Session) Current() (*prefetch.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}

	return s.current.asset, true
}

// Snapshot renders the image currently on display as a shareable PNG,
// captioned with the entity name only once it is revealed and unmasked.
func (s *Session) Snapshot(background color.NRGBA) ([]byte, error) {
	s.mu.Lock()
	r := s.current
	if r == nil {
		s.mu.Unlock()

		return nil, ErrNoRound
	}

	img := r.asset.Silhouette
	opts := share.Options{Background: background}
	if !r.showSilhouette {
		img = r.asset.Full
		opts.Caption = r.entity()
	}
	s.mu.Unlock()

	return share.Compose(img, opts)
}

func (s *Session) Close() {
	s.pipeline.Close()
}
