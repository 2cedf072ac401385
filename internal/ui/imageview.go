package ui

import (
	"image"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// ImageView converts a waveform image into a terminal string using "▀"
// half-blocks (fg = top pixel, bg = bottom pixel), packing two pixel rows per
// terminal row. The source image is scaled to the cell grid first, so the
// compositor can render at a higher resolution than the terminal shows.
type ImageView struct {
	mode colorMode
	sb   strings.Builder // reusable builder to reduce allocations
}

// NewImageView creates a view using the current terminal's color capabilities.
func NewImageView() *ImageView {
	return &ImageView{mode: detectColorMode()}
}

// Render converts img into a block of cols x rows terminal cells.
func (v *ImageView) Render(img *image.RGBA, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	pixW, pixH := cols, rows*2
	scaled := img
	if b := img.Bounds(); b.Dx() != pixW || b.Dy() != pixH {
		scaled = image.NewRGBA(image.Rect(0, 0, pixW, pixH))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)
	}

	v.sb.Reset()
	// Worst case ~20 bytes per cell for color escapes, plus newlines.
	v.sb.Grow(cols*rows*24 + rows)

	var lastFg, lastBg string
	for row := range rows {
		if row > 0 {
			v.sb.WriteByte('\n')
		}
		for col := range cols {
			tr, tg, tb := pixelAt(scaled, col, row*2)
			br, bg, bb := pixelAt(scaled, col, row*2+1)

			if v.mode == colorOff {
				v.sb.WriteByte(monoChar(tr, tg, tb, br, bg, bb))
				continue
			}
			fg := fgColorSeq(v.mode, tr, tg, tb)
			bgc := bgColorSeq(v.mode, br, bg, bb)
			if fg != lastFg {
				v.sb.WriteString(fg)
				lastFg = fg
			}
			if bgc != lastBg {
				v.sb.WriteString(bgc)
				lastBg = bgc
			}
			v.sb.WriteString("▀")
		}
		if v.mode != colorOff {
			v.sb.WriteString(ansiReset)
			lastFg, lastBg = "", ""
		}
	}
	return v.sb.String()
}

func pixelAt(img *image.RGBA, x, y int) (uint8, uint8, uint8) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return 0, 0, 0
	}
	off := img.PixOffset(x, y)
	return img.Pix[off], img.Pix[off+1], img.Pix[off+2]
}

// monoChar picks a block character for colorless terminals from the two
// pixel luminances.
func monoChar(tr, tg, tb, br, bg, bb uint8) byte {
	top := luminance(tr, tg, tb) > 64
	bot := luminance(br, bg, bb) > 64
	switch {
	case top && bot:
		return '#'
	case top || bot:
		return '-'
	default:
		return ' '
	}
}

// luminance computes perceived brightness (ITU-R BT.601).
func luminance(r, g, b uint8) uint8 {
	return uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
}
