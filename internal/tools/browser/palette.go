package browser

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

var (
	paletteOnce sync.Once
	palette     color.Palette
)

// websafePalette builds a 6x6x6 color cube plus grayscale ramp, enough for
// screenshot traces without per-frame quantization cost.
func websafePalette() color.Palette {
	paletteOnce.Do(func() {
		for r := 0; r < 6; r++ {
			for g := 0; g < 6; g++ {
				for b := 0; b < 6; b++ {
					palette = append(palette, color.RGBA{
						R: uint8(r * 51),
						G: uint8(g * 51),
						B: uint8(b * 51),
						A: 255,
					})
				}
			}
		}
		for v := 0; v < 40; v++ {
			gray := uint8(v * 255 / 39)
			palette = append(palette, color.RGBA{R: gray, G: gray, B: gray, A: 255})
		}
	})
	return palette
}

func drawPaletted(dst *image.Paletted, src image.Image) {
	draw.FloydSteinberg.Draw(dst, dst.Bounds(), src, src.Bounds().Min)
}
