/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prefetch

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
)

// Key identifies one image variant of one entity.
type Key struct {
	Entity  string
	Variant int
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d", k.Entity, k.Variant)
}

// Asset is a resolved full-color image and its silhouette. Assets are
// immutable once resolved and may be shared between sessions.
type Asset struct {
	Key        Key
	Full       image.Image
	Silhouette image.Image

	full       encoded
	silhouette encoded
}

type encoded struct {
	once sync.Once
	data []byte
	err  error
}

func (e *encoded) get(img image.Image) ([]byte, error) {
	e.once.Do(func() {
		if e.data != nil {
			return
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			e.err = fmt.Errorf("encode png: %w", err)

			return
		}

		e.data = buf.Bytes()
	})

	return e.data, e.err
}

// NewAsset wraps already decoded images. raw, if not nil, is served as the
// full image instead of re-encoding it.
func NewAsset(key Key, full, silhouette image.Image, raw []byte) *Asset {
	a := &Asset{
		Key:        key,
		Full:       full,
		Silhouette: silhouette,
	}
	a.full.data = raw

	return a
}

// FullPNG returns the full-color image as PNG.
func (a *Asset) FullPNG() ([]byte, error) {
	return a.full.get(a.Full)
}

// SilhouettePNG returns the silhouette as PNG.
func (a *Asset) SilhouettePNG() ([]byte, error) {
	return a.silhouette.get(a.Silhouette)
}
