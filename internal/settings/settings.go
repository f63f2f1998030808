/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package settings reads and writes the per-player settings blob.
package settings

import (
	"errors"
	"maps"
	"slices"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Seednode/silhouette/internal/catalog"
)

var ErrCorrupt = errors.New("corrupt settings")

type Settings struct {
	IncludeForms       bool
	EnableAutocomplete bool
	Categories         map[int]bool
}

// Default enables everything.
func Default(categories []int) Settings {
	s := Settings{
		IncludeForms:       true,
		EnableAutocomplete: true,
		Categories:         make(map[int]bool, len(categories)),
	}

	for _, c := range categories {
		s.Categories[c] = true
	}

	return s
}

// Parse reads a stored settings blob. Missing or mistyped fields keep their
// defaults, and a blob that enables no category enables all of them. A blob
// that is not valid JSON yields the defaults along with ErrCorrupt.
func Parse(blob []byte, categories []int) (Settings, error) {
	s, err := ParseChange(blob, categories)
	if err != nil {
		return Default(categories), err
	}

	if len(s.Enabled()) == 0 {
		for _, c := range categories {
			s.Categories[c] = true
		}
	}

	return s, nil
}

// ParseChange reads a settings change sent by a player. Unlike Parse it
// keeps a selection with no category enabled, so the caller can refuse it.
func ParseChange(blob []byte, categories []int) (Settings, error) {
	s := Default(categories)

	if len(blob) == 0 {
		return s, nil
	}

	if !gjson.ValidBytes(blob) {
		return s, ErrCorrupt
	}

	s.IncludeForms = boolOr(gjson.GetBytes(blob, "includeForms"), true)
	s.EnableAutocomplete = boolOr(gjson.GetBytes(blob, "enableAutocomplete"), true)

	gens := gjson.GetBytes(blob, "gens")
	for _, c := range categories {
		s.Categories[c] = boolOr(gens.Get(strconv.Itoa(c)), true)
	}

	return s, nil
}

func boolOr(r gjson.Result, def bool) bool {
	if !r.IsBool() {
		return def
	}

	return r.Bool()
}

// Encode writes the blob read by Parse.
func (s Settings) Encode() ([]byte, error) {
	gens := make(map[string]bool, len(s.Categories))
	for c, on := range s.Categories {
		gens[strconv.Itoa(c)] = on
	}

	out, err := sjson.SetBytes([]byte(`{}`), "includeForms", s.IncludeForms)
	if err != nil {
		return nil, err
	}

	out, err = sjson.SetBytes(out, "enableAutocomplete", s.EnableAutocomplete)
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(out, "gens", gens)
}

// Enabled lists the enabled categories in ascending order.
func (s Settings) Enabled() []int {
	var out []int
	for c, on := range s.Categories {
		if on {
			out = append(out, c)
		}
	}
	slices.Sort(out)

	return out
}

func (s Settings) Filters() catalog.Filters {
	return catalog.Filters{
		Categories:   maps.Clone(s.Categories),
		IncludeForms: s.IncludeForms,
	}
}

func (s Settings) Clone() Settings {
	s.Categories = maps.Clone(s.Categories)

	return s
}
