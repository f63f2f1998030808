/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package silhouette turns full-color renders into single-color silhouettes
// that keep the alpha channel of the source.
package silhouette

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Strategy selects how a silhouette is produced. Both strategies yield the
// same dimensions and alpha channel.
type Strategy int

const (
	// Pixel recolors every pixel of a copy of the source.
	Pixel Strategy = iota
	// Composite fills a surface with the fill color, masked by the source alpha.
	Composite
)

func (s Strategy) String() string {
	switch s {
	case Pixel:
		return "pixel"
	case Composite:
		return "composite"
	}

	return fmt.Sprintf("Strategy(%d)", int(s))
}

func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "pixel":
		return Pixel, nil
	case "composite":
		return Composite, nil
	}

	return Pixel, fmt.Errorf("unknown silhouette strategy %q (must be pixel or composite)", s)
}

// Black is the default silhouette fill.
var Black = color.NRGBA{A: 0xff}

type Renderer struct {
	Strategy Strategy
	Fill     color.NRGBA
}

// Render returns a silhouette of src. A source with no pixels (a failed
// decode) is returned unchanged.
func (r Renderer) Render(src image.Image) image.Image {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return src
	}

	fill := r.Fill
	fill.A = 0xff

	if r.Strategy == Composite {
		return composite(src, fill)
	}

	return recolor(src, fill)
}

func recolor(src image.Image, fill color.NRGBA) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)

	switch s := src.(type) {
	case *image.NRGBA:
		// Both images share b, so rows line up byte for byte.
		for y := b.Min.Y; y < b.Max.Y; y++ {
			si := s.PixOffset(b.Min.X, y)
			di := dst.PixOffset(b.Min.X, y)
			for x := 0; x < b.Dx(); x++ {
				dst.Pix[di+0] = fill.R
				dst.Pix[di+1] = fill.G
				dst.Pix[di+2] = fill.B
				dst.Pix[di+3] = s.Pix[si+3]
				si += 4
				di += 4
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				_, _, _, a := src.At(x, y).RGBA()
				dst.SetNRGBA(x, y, color.NRGBA{R: fill.R, G: fill.G, B: fill.B, A: uint8(a >> 8)})
			}
		}
	}

	return dst
}

func composite(src image.Image, fill color.NRGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)

	draw.DrawMask(dst, b, image.NewUniform(fill), image.Point{}, src, b.Min, draw.Src)

	return dst
}
