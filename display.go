package lensing

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Snapshot reads the color buffer into a full-resolution image. Incomplete
// pixels hold whatever the kernels last wrote, usually zero.
func (d *Driver) Snapshot() (*image.NRGBA, error) {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	return d.snapshot()
}

// Present scales the current color buffer into dst. It may be called in any
// state once a render has been initialized.
func (d *Driver) Present(dst draw.Image) error {
	img, err := d.Snapshot()
	if err != nil {
		return err
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return nil
}

// snapshot is Snapshot without locking. Caller holds deviceMu.
func (d *Driver) snapshot() (*image.NRGBA, error) {
	pix, err := d.frames.ReadColor()
	if err != nil {
		return nil, err
	}
	res := d.frames.Resolution()
	return colorImage(pix, res.Width, res.Height), nil
}

// colorImage converts RGBA float32 samples to an 8-bit image, clamping each
// channel to [0,1].
func colorImage(pix []float32, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	n := min(len(pix)/4, width*height)
	for i := 0; i < n; i++ {
		img.SetNRGBA(i%width, i/width, color.NRGBA{
			R: unorm8(pix[i*4]),
			G: unorm8(pix[i*4+1]),
			B: unorm8(pix[i*4+2]),
			A: unorm8(pix[i*4+3]),
		})
	}
	return img
}

func unorm8(v float32) uint8 {
	if !(v > 0) { // NaN too
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
