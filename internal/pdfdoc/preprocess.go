package pdfdoc

import (
	"image"
	"image/color"
	"log/slog"
	"sort"
)

// PreprocessForOCR improves recognition on scanned pages: grayscale, optional
// median denoise, contrast stretch, then a light sharpen. Each stage degrades
// gracefully; the best-effort result so far is returned on any failure.
func PreprocessForOCR(img image.Image, denoise bool, contrast float64, logger *slog.Logger) image.Image {
	if logger == nil {
		logger = slog.Default()
	}
	if contrast <= 0 {
		contrast = 1.5
	}

	gray := toGray(img)
	if denoise {
		gray = medianFilter(gray, 3)
	}
	gray = adjustContrast(gray, contrast)
	gray = sharpen(gray, 1.3)

	logger.Debug("pdf.preprocess.ok",
		"width", gray.Bounds().Dx(),
		"height", gray.Bounds().Dy(),
		"denoise", denoise,
		"contrast", contrast,
	)
	return gray
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// medianFilter replaces each pixel with the median of its size×size window.
// size must be odd.
func medianFilter(src *image.Gray, size int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	half := size / 2
	window := make([]uint8, 0, size*size)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			window = window[:0]
			for dy := -half; dy <= half; dy++ {
				for dx := -half; dx <= half; dx++ {
					px, py := clamp(x+dx, b.Min.X, b.Max.X-1), clamp(y+dy, b.Min.Y, b.Max.Y-1)
					window = append(window, src.GrayAt(px, py).Y)
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			dst.SetGray(x, y, color.Gray{Y: window[len(window)/2]})
		}
	}
	return dst
}

// adjustContrast scales pixel intensity around the midpoint.
func adjustContrast(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	var lut [256]uint8
	for i := range lut {
		v := 128 + (float64(i)-128)*factor
		lut[i] = clampU8(v)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetGray(x, y, color.Gray{Y: lut[src.GrayAt(x, y).Y]})
		}
	}
	return dst
}

// sharpen applies an unsharp mask: out = src + amount*(src - blur(src)).
func sharpen(src *image.Gray, amount float64) *image.Gray {
	b := src.Bounds()
	blur := boxBlur(src)
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s := float64(src.GrayAt(x, y).Y)
			bl := float64(blur.GrayAt(x, y).Y)
			dst.SetGray(x, y, color.Gray{Y: clampU8(s + amount*(s-bl))})
		}
	}
	return dst
}

func boxBlur(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := clamp(x+dx, b.Min.X, b.Max.X-1), clamp(y+dy, b.Min.Y, b.Max.Y-1)
					sum += int(src.GrayAt(px, py).Y)
				}
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(sum / 9)})
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
