package ui

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func fill(img *image.RGBA, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestImageViewTruecolor(t *testing.T) {
	v := &ImageView{mode: colorTrue}

	// 2x4 px image: top half red, bottom half blue, viewed as 2x2 cells.
	img := image.NewRGBA(image.Rect(0, 0, 2, 4))
	fill(img, color.RGBA{0, 0, 0, 255})
	for x := range 2 {
		for y := range 2 {
			img.SetRGBA(x, y, color.RGBA{255, 0, 0, 255})
			img.SetRGBA(x, y+2, color.RGBA{0, 0, 255, 255})
		}
	}

	out := v.Render(img, 2, 2)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if got := strings.Count(out, "▀"); got != 4 {
		t.Fatalf("got %d half-blocks, want 4", got)
	}
	if !strings.Contains(lines[0], "\x1b[38;2;255;0;0m") {
		t.Fatal("top row should set a red foreground")
	}
	if !strings.Contains(lines[1], "\x1b[48;2;0;0;255m") {
		t.Fatal("bottom row should set a blue background")
	}
	if !strings.HasSuffix(lines[1], ansiReset) {
		t.Fatal("each row must end with a reset")
	}
}

func TestImageViewElidesRepeatedColors(t *testing.T) {
	v := &ImageView{mode: colorTrue}
	img := image.NewRGBA(image.Rect(0, 0, 8, 2))
	fill(img, color.RGBA{10, 20, 30, 255})

	out := v.Render(img, 8, 1)
	if got := strings.Count(out, "\x1b[38;2;"); got != 1 {
		t.Fatalf("%d foreground escapes for a uniform row, want 1", got)
	}
	if got := strings.Count(out, "▀"); got != 8 {
		t.Fatalf("got %d half-blocks, want 8", got)
	}
}

func TestImageViewScalesToCellGrid(t *testing.T) {
	v := &ImageView{mode: colorTrue}
	img := image.NewRGBA(image.Rect(0, 0, 400, 100))
	fill(img, color.RGBA{50, 50, 50, 255})

	out := v.Render(img, 10, 3)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		if got := strings.Count(line, "▀"); got != 10 {
			t.Fatalf("line %d has %d cells, want 10", i, got)
		}
	}
}

func TestImageViewMono(t *testing.T) {
	v := &ImageView{mode: colorOff}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	fill(img, color.RGBA{0, 0, 0, 255})
	img.SetRGBA(0, 0, color.RGBA{255, 255, 255, 255}) // bright top pixel only

	out := v.Render(img, 2, 1)
	if out != "- " {
		t.Fatalf("mono render = %q, want %q", out, "- ")
	}
}

func TestImageViewEmptyInputs(t *testing.T) {
	v := &ImageView{mode: colorTrue}
	if got := v.Render(nil, 10, 3); got != "" {
		t.Fatalf("nil image rendered %q", got)
	}
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if got := v.Render(img, 0, 3); got != "" {
		t.Fatalf("zero cols rendered %q", got)
	}
}
