/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "silhouette.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	out := map[string]Store{
		"memory": NewMemory(),
		"sqlite": db,
	}
	for _, s := range out {
		t.Cleanup(func() { _ = s.Close() })
	}

	return out
}

func TestBestStreakOnlyIncreases(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if best, err := s.BestStreak(ctx, "ash"); err != nil || best != 0 {
				t.Fatalf("BestStreak of unknown player = %d, %v", best, err)
			}

			for _, step := range []struct{ streak, want int }{
				{3, 3},
				{1, 3},
				{7, 7},
				{0, 7},
			} {
				best, err := s.RecordStreak(ctx, "ash", step.streak)
				if err != nil {
					t.Fatal(err)
				}
				if best != step.want {
					t.Fatalf("RecordStreak(%d) = %d, want %d", step.streak, best, step.want)
				}
			}

			if best, _ := s.BestStreak(ctx, "ash"); best != 7 {
				t.Fatalf("BestStreak = %d, want 7", best)
			}
			if best, _ := s.BestStreak(ctx, "misty"); best != 0 {
				t.Fatalf("streak leaked to another player: %d", best)
			}
		})
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if blob, err := s.Settings(ctx, "brock"); err != nil || blob != nil {
				t.Fatalf("Settings of unknown player = %q, %v", blob, err)
			}

			if err := s.SaveSettings(ctx, "brock", []byte(`{"includeForms":false}`)); err != nil {
				t.Fatal(err)
			}
			if err := s.SaveSettings(ctx, "brock", []byte(`{"includeForms":true}`)); err != nil {
				t.Fatal(err)
			}

			blob, err := s.Settings(ctx, "brock")
			if err != nil || string(blob) != `{"includeForms":true}` {
				t.Fatalf("Settings = %q, %v", blob, err)
			}

			// Saving settings must not reset the streak and vice versa.
			if _, err := s.RecordStreak(ctx, "brock", 4); err != nil {
				t.Fatal(err)
			}
			if blob, _ := s.Settings(ctx, "brock"); string(blob) != `{"includeForms":true}` {
				t.Fatalf("settings lost after RecordStreak: %q", blob)
			}
			if err := s.SaveSettings(ctx, "brock", []byte(`{}`)); err != nil {
				t.Fatal(err)
			}
			if best, _ := s.BestStreak(ctx, "brock"); best != 4 {
				t.Fatalf("best streak lost after SaveSettings: %d", best)
			}
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silhouette.db")
	ctx := context.Background()

	db, err := OpenSQLite(path, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.RecordStreak(ctx, "gary", 12); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = OpenSQLite(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	if best, err := db.BestStreak(ctx, "gary"); err != nil || best != 12 {
		t.Fatalf("BestStreak after reopen = %d, %v", best, err)
	}
}
