/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists each player's best streak and settings blob.
package store

import (
	"context"
	"slices"
	"sync"
)

type Store interface {
	// BestStreak returns 0 for unknown players.
	BestStreak(ctx context.Context, player string) (int, error)
	// RecordStreak raises the best streak to streak if it is higher, and
	// returns the resulting best streak.
	RecordStreak(ctx context.Context, player string, streak int) (int, error)
	// Settings returns nil for players without saved settings.
	Settings(ctx context.Context, player string) ([]byte, error)
	SaveSettings(ctx context.Context, player string, blob []byte) error
	Close() error
}

type record struct {
	best     int
	settings []byte
}

// Memory keeps everything in process memory.
type Memory struct {
	mu      sync.RWMutex
	players map[string]*record
}

func NewMemory() *Memory {
	return &Memory{players: make(map[string]*record)}
}

func (m *Memory) BestStreak(_ context.Context, player string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r, ok := m.players[player]; ok {
		return r.best, nil
	}

	return 0, nil
}

func (m *Memory) RecordStreak(_ context.Context, player string, streak int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.recordLocked(player)
	r.best = max(r.best, streak)

	return r.best, nil
}

func (m *Memory) Settings(_ context.Context, player string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r, ok := m.players[player]; ok {
		return slices.Clone(r.settings), nil
	}

	return nil, nil
}

func (m *Memory) SaveSettings(_ context.Context, player string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recordLocked(player).settings = slices.Clone(blob)

	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) recordLocked(player string) *record {
	r, ok := m.players[player]
	if !ok {
		r = &record{}
		m.players[player] = r
	}

	return r
}
