/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package share flattens the currently displayed image into a PNG that can
// be copied or saved, captioned with the entity name once it is revealed.
package share

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrEmptyImage = errors.New("image has no pixels")

var (
	White   = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	outline = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

type Options struct {
	// Background replaces transparency; it is forced opaque.
	Background color.NRGBA
	// Caption is drawn near the bottom edge when not empty.
	Caption string
}

// Compose returns img flattened onto an opaque background as PNG.
func Compose(img image.Image, opts Options) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrEmptyImage
	}

	bg := opts.Background
	bg.A = 0xff

	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, b.Min, draw.Over)

	if opts.Caption != "" {
		caption(canvas, opts.Caption)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// caption draws text centered horizontally, its bottom edge 5% above the
// bottom of dst, scaled to 7.5% of the image height.
func caption(dst *image.RGBA, text string) {
	face := basicfont.Face7x13
	metrics := face.Metrics()

	const stroke = 1

	width := font.MeasureString(face, text).Ceil()
	height := metrics.Height.Ceil()
	label := image.NewRGBA(image.Rect(0, 0, width+2*stroke, height+2*stroke))

	baseline := stroke + metrics.Ascent.Ceil()

	d := &font.Drawer{Dst: label, Face: face}

	d.Src = image.NewUniform(outline)
	for dy := -stroke; dy <= stroke; dy++ {
		for dx := -stroke; dx <= stroke; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d.Dot = fixed.P(stroke+dx, baseline+dy)
			d.DrawString(text)
		}
	}

	d.Src = image.NewUniform(White)
	d.Dot = fixed.P(stroke, baseline)
	d.DrawString(text)

	h := dst.Bounds().Dy()
	w := dst.Bounds().Dx()

	scale := max(float64(h)*0.075/float64(height), 1)
	sw := int(float64(label.Bounds().Dx()) * scale)
	sh := int(float64(label.Bounds().Dy()) * scale)

	bottom := h - int(float64(h)*0.05)
	left := (w - sw) / 2
	target := image.Rect(left, bottom-sh, left+sw, bottom)

	draw.ApproxBiLinear.Scale(dst, target, label, label.Bounds(), draw.Over, nil)
}
