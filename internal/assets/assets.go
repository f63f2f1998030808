/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package assets describes the static asset layout and the sources it can
// be read from.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var ErrNotFound = errors.New("asset not found")

const rendersDir = "Pokemon_Renders"

// Source opens static assets by their slash-separated layout path.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// BaseList is the newline-delimited list of base names for a category.
func BaseList(category int) string {
	return fmt.Sprintf("gen%d_pokemon.txt", category)
}

// FormsList is the newline-delimited list of alternate-form names for a category.
func FormsList(category int) string {
	return fmt.Sprintf("gen%d_forms.txt", category)
}

// Alias returns the path-safe folder name for an entity. Periods are not
// allowed in a path segment, so "Mime Jr." is stored as "Mime Jr".
func Alias(entity string) string {
	return strings.TrimSpace(strings.ReplaceAll(entity, ".", ""))
}

// Image is the layout path of variant index of entity.
func Image(entity string, variant int) string {
	folder := Alias(entity)

	return path.Join(rendersDir, folder, fmt.Sprintf("%s_%d.png", folder, variant))
}

// FS reads assets from an afero filesystem rooted at the asset directory.
type FS struct {
	fs afero.Fs
}

func NewFS(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// NewDir reads assets from a directory on the local filesystem.
func NewDir(dir string) *FS {
	return NewFS(afero.NewBasePathFs(afero.NewOsFs(), dir))
}

func (s *FS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(name)
	switch {
	case errors.Is(err, afero.ErrFileNotFound):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	return f, nil
}

// HTTP reads assets relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

func NewHTTP(base string, timeout time.Duration) (*HTTP, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse asset url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported asset url scheme %q", u.Scheme)
	}

	return &HTTP{
		base:   u,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (s *HTTP) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	ref := &url.URL{Path: name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()

		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()

		return nil, fmt.Errorf("fetch %s: unexpected status %s", name, resp.Status)
	}

	return resp.Body, nil
}
