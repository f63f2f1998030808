/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prefetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"time"

	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"

	"github.com/Seednode/silhouette/internal/assets"
	"github.com/Seednode/silhouette/internal/silhouette"
)

// ErrUnavailable marks a pick whose image could not be fetched or decoded.
var ErrUnavailable = errors.New("asset unavailable")

// Resolver turns a key into a ready asset.
type Resolver interface {
	Resolve(ctx context.Context, key Key) (*Asset, error)
}

// SourceResolver fetches, decodes and silhouettes images from a source.
// Concurrent requests for the same image, from any session, share one load.
type SourceResolver struct {
	src      assets.Source
	renderer silhouette.Renderer
	timeout  time.Duration
	group    singleflight.Group
	log      zerolog.Logger
}

func NewSourceResolver(src assets.Source, renderer silhouette.Renderer, timeout time.Duration, log zerolog.Logger) *SourceResolver {
	return &SourceResolver{
		src:      src,
		renderer: renderer,
		timeout:  timeout,
		log:      log,
	}
}

func (r *SourceResolver) Resolve(ctx context.Context, key Key) (*Asset, error) {
	name := assets.Image(key.Entity, key.Variant)

	ch := r.group.DoChan(name, func() (any, error) {
		return r.load(key, name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		asset, ok := res.Val.(*Asset)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected result type %T", ErrUnavailable, res.Val)
		}

		return asset, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// load runs detached from any one caller, since its result is shared.
func (r *SourceResolver) load(key Key, name string) (*Asset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	startTime := time.Now()

	rc, err := r.src.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUnavailable, name, err)
	}

	full, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrUnavailable, name, err)
	}

	if format != "png" {
		raw = nil
	}

	asset := NewAsset(key, full, r.renderer.Render(full), raw)

	r.log.Debug().
		Str("asset", name).
		Str("format", format).
		Dur("elapsed", time.Since(startTime).Round(time.Microsecond)).
		Msg("resolved asset")

	return asset, nil
}
