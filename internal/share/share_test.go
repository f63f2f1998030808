/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package share

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func render() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(10, 10, 210, 160))
	// Opaque block in the top half, transparent elsewhere.
	for y := 20; y < 60; y++ {
		for x := 40; x < 120; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0xcc, A: 0xff})
		}
	}

	return img
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	return img
}

func TestComposeFlattens(t *testing.T) {
	bg := color.NRGBA{R: 0x20, G: 0x40, B: 0x60, A: 0x10}

	out := decode(t, mustCompose(t, render(), Options{Background: bg}))

	if out.Bounds() != image.Rect(0, 0, 200, 150) {
		t.Fatalf("bounds %v, want 200x150", out.Bounds())
	}

	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := out.At(x, y).RGBA(); a != 0xffff {
				t.Fatalf("pixel (%d,%d) is not opaque", x, y)
			}
		}
	}

	if got := color.NRGBAModel.Convert(out.At(0, 0)).(color.NRGBA); got != (color.NRGBA{R: 0x20, G: 0x40, B: 0x60, A: 0xff}) {
		t.Fatalf("background pixel = %v", got)
	}
	if got := color.NRGBAModel.Convert(out.At(50, 20)).(color.NRGBA); got != (color.NRGBA{R: 0xcc, A: 0xff}) {
		t.Fatalf("image pixel = %v", got)
	}
}

func TestComposeCaption(t *testing.T) {
	plain := decode(t, mustCompose(t, render(), Options{Background: White}))
	captioned := decode(t, mustCompose(t, render(), Options{Background: White, Caption: "Pikachu"}))

	changedTop, changedBottom := 0, 0

	b := plain.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if plain.At(x, y) == captioned.At(x, y) {
				continue
			}
			if y < b.Dy()/2 {
				changedTop++
			} else {
				changedBottom++
			}
		}
	}

	if changedBottom == 0 {
		t.Fatal("caption was not drawn")
	}
	if changedTop != 0 {
		t.Fatalf("caption touched %d pixels in the top half", changedTop)
	}
}

func TestComposeEmpty(t *testing.T) {
	if _, err := Compose(image.NewNRGBA(image.Rect(0, 0, 0, 0)), Options{}); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func mustCompose(t *testing.T, img image.Image, opts Options) []byte {
	t.Helper()

	data, err := Compose(img, opts)
	if err != nil {
		t.Fatal(err)
	}

	return data
}
