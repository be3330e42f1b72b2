package hal

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOLED_DisplayPublishesBackBuffer(t *testing.T) {
	d := NewOLED(8, 4)
	white := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	d.SetPixel(1, 1, white)
	d.SetPixel(2, 1, white)
	assert.Equal(t, 0, d.Lit(), "drawing is not visible before Display")

	var published image.Image
	d.OnDisplay(func(img image.Image) { published = img })
	assert.NoError(t, d.Display())

	assert.Equal(t, 2, d.Lit())
	assert.Equal(t, uint64(1), d.Frames())
	if assert.NotNil(t, published) {
		r, _, _, _ := published.At(1, 1).RGBA()
		assert.NotZero(t, r)
	}

	d.ClearDisplay()
	assert.NoError(t, d.Display())
	assert.Equal(t, 0, d.Lit())
}

func TestOLED_SetPixelOutOfRange(t *testing.T) {
	d := NewOLED(4, 4)
	on := color.RGBA{R: 1, A: 0xff}
	d.SetPixel(-1, 0, on)
	d.SetPixel(4, 0, on)
	d.SetPixel(0, 4, on)
	assert.NoError(t, d.Display())
	assert.Equal(t, 0, d.Lit())
}

func TestOLED_ImageIsACopy(t *testing.T) {
	d := NewOLED(4, 4)
	d.SetPixel(0, 0, color.RGBA{G: 0xff, A: 0xff})
	assert.NoError(t, d.Display())

	img := d.Image()
	img.Pix[0] = 0
	assert.Equal(t, 1, d.Lit())
}
