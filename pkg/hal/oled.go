package hal

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// SSD1306 geometry.
const (
	OLEDWidth  = 128
	OLEDHeight = 64
)

// OLED is an in-memory monochrome framebuffer with the SSD1306 geometry.
// Drawing goes to a back buffer; Display publishes it.
type OLED struct {
	w, h int16

	mu        sync.Mutex
	back      *image.RGBA
	front     *image.RGBA
	frames    uint64
	onDisplay func(img image.Image)
}

// NewOLED creates a cleared framebuffer.
func NewOLED(w, h int16) *OLED {
	r := image.Rect(0, 0, int(w), int(h))
	d := &OLED{
		w:     w,
		h:     h,
		back:  image.NewRGBA(r),
		front: image.NewRGBA(r),
	}
	d.ClearDisplay()
	return d
}

func (d *OLED) Size() (x, y int16) { return d.w, d.h }

// SetPixel lights any pixel with a non-black color. Out of range is ignored.
func (d *OLED) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= d.w || y >= d.h {
		return
	}
	on := c.R|c.G|c.B != 0
	d.mu.Lock()
	if on {
		d.back.SetRGBA(int(x), int(y), color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	} else {
		d.back.SetRGBA(int(x), int(y), color.RGBA{A: 0xff})
	}
	d.mu.Unlock()
}

// Display publishes the back buffer.
func (d *OLED) Display() error {
	d.mu.Lock()
	draw.Draw(d.front, d.front.Bounds(), d.back, image.Point{}, draw.Src)
	d.frames++
	fn := d.onDisplay
	var snap *image.RGBA
	if fn != nil {
		snap = d.snapshotLocked()
	}
	d.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return nil
}

// ClearDisplay blanks the back buffer.
func (d *OLED) ClearDisplay() {
	d.mu.Lock()
	draw.Draw(d.back, d.back.Bounds(), image.NewUniform(color.RGBA{A: 0xff}), image.Point{}, draw.Src)
	d.mu.Unlock()
}

// Image returns a copy of the last published frame.
func (d *OLED) Image() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Frames returns the number of published frames.
func (d *OLED) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Lit counts the lit pixels of the last published frame.
func (d *OLED) Lit() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for i := 0; i < len(d.front.Pix); i += 4 {
		if d.front.Pix[i] != 0 {
			n++
		}
	}
	return n
}

// OnDisplay registers a callback receiving a copy of each published frame.
func (d *OLED) OnDisplay(fn func(img image.Image)) {
	d.mu.Lock()
	d.onDisplay = fn
	d.mu.Unlock()
}

func (d *OLED) snapshotLocked() *image.RGBA {
	img := image.NewRGBA(d.front.Bounds())
	copy(img.Pix, d.front.Pix)
	return img
}
