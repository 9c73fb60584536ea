package pdfdoc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestToGrayConvertsRGBA(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	src.Set(1, 1, color.RGBA{A: 255})

	gray := toGray(src)
	assert.Equal(t, uint8(255), gray.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), gray.GrayAt(1, 1).Y)
}

func TestMedianFilterRemovesSaltNoise(t *testing.T) {
	img := uniformGray(5, 5, 200)
	img.SetGray(2, 2, color.Gray{Y: 0}) // lone dark pixel

	out := medianFilter(img, 3)
	assert.Equal(t, uint8(200), out.GrayAt(2, 2).Y)
}

func TestAdjustContrastStretchesAroundMidpoint(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.SetGray(0, 0, color.Gray{Y: 100})
	img.SetGray(1, 0, color.Gray{Y: 128})
	img.SetGray(2, 0, color.Gray{Y: 200})

	out := adjustContrast(img, 1.5)
	// 128 + (100-128)*1.5 = 86; midpoint fixed; 128 + (200-128)*1.5 = 236
	assert.Equal(t, uint8(86), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(128), out.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(236), out.GrayAt(2, 0).Y)
}

func TestAdjustContrastClamps(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 255})

	out := adjustContrast(img, 3.0)
	assert.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), out.GrayAt(1, 0).Y)
}

func TestSharpenIncreasesEdgeContrast(t *testing.T) {
	// Left half dark, right half light.
	img := image.NewGray(image.Rect(0, 0, 6, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 6; x++ {
			v := uint8(64)
			if x >= 3 {
				v = 192
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	out := sharpen(img, 1.3)
	// The dark side of the edge darkens, the light side brightens.
	assert.Less(t, out.GrayAt(2, 1).Y, img.GrayAt(2, 1).Y)
	assert.Greater(t, out.GrayAt(3, 1).Y, img.GrayAt(3, 1).Y)
}

func TestPreprocessForOCRKeepsDimensions(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))
	out := PreprocessForOCR(src, true, 1.5, nil)
	require.NotNil(t, out)
	assert.Equal(t, src.Bounds(), out.Bounds())
}
