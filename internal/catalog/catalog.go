/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package catalog loads the per-category name lists and builds the active
// pool of entities from them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Seednode/silhouette/internal/assets"
)

var ErrEmptyPool = errors.New("pool would be empty")

var lineBreak = regexp.MustCompile(`\r?\n`)

// Catalog holds the base and alternate-form names of every loaded category.
type Catalog struct {
	base    map[int][]string
	forms   map[int][]string
	aliases map[string]string
}

func (c *Catalog) Categories() []int {
	out := make([]int, 0, len(c.base))
	for category := range c.base {
		out = append(out, category)
	}
	slices.Sort(out)

	return out
}

func (c *Catalog) Base(category int) []string {
	return slices.Clone(c.base[category])
}

func (c *Catalog) Forms(category int) []string {
	return slices.Clone(c.forms[category])
}

// Lookup maps a path-safe alias back to its display name.
func (c *Catalog) Lookup(alias string) (string, bool) {
	name, ok := c.aliases[alias]

	return name, ok
}

// Filters selects which parts of the catalog make up the active pool.
type Filters struct {
	Categories   map[int]bool
	IncludeForms bool
}

// Pool concatenates, for every enabled category in ascending order, its base
// names and, if enabled, its alternate-form names.
func (c *Catalog) Pool(f Filters) ([]string, error) {
	var pool []string

	for _, category := range c.Categories() {
		if !f.Categories[category] {
			continue
		}

		pool = append(pool, c.base[category]...)

		if f.IncludeForms {
			pool = append(pool, c.forms[category]...)
		}
	}

	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	return pool, nil
}

// Loader fetches catalogs from a source.
type Loader struct {
	src assets.Source
	log zerolog.Logger
}

func NewLoader(src assets.Source, log zerolog.Logger) *Loader {
	return &Loader{src: src, log: log}
}

// Load fetches both lists of every category concurrently. Any failed fetch
// fails the whole load.
func (l *Loader) Load(ctx context.Context, categories []int) (*Catalog, error) {
	base := make([][]string, len(categories))
	forms := make([][]string, len(categories))

	g, gctx := errgroup.WithContext(ctx)

	for i, category := range categories {
		g.Go(func() error {
			names, err := l.fetch(gctx, assets.BaseList(category))
			base[i] = names

			return err
		})

		g.Go(func() error {
			names, err := l.fetch(gctx, assets.FormsList(category))
			forms[i] = names

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	c := &Catalog{
		base:    make(map[int][]string, len(categories)),
		forms:   make(map[int][]string, len(categories)),
		aliases: make(map[string]string),
	}

	for i, category := range categories {
		c.base[category] = base[i]
		c.forms[category] = forms[i]

		for _, name := range slices.Concat(base[i], forms[i]) {
			c.aliases[assets.Alias(name)] = name
		}

		l.log.Debug().
			Int("category", category).
			Int("base", len(base[i])).
			Int("forms", len(forms[i])).
			Msg("loaded category")
	}

	return c, nil
}

func (l *Loader) fetch(ctx context.Context, name string) ([]string, error) {
	rc, err := l.src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return ParseList(string(data)), nil
}

// ParseList splits newline-delimited text, dropping empty lines.
func ParseList(text string) []string {
	var out []string

	for _, line := range lineBreak.Split(text, -1) {
		if line == "" {
			continue
		}

		out = append(out, line)
	}

	return out
}
