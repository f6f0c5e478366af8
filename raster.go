// raster.go - Output raster backed by x/image, for rendering a sheet out

// Per SPEC_FULL.md §3, the output raster a sheet's blits are written into
// is backed by image.Gray/image.NRGBA so that rendered pages round-trip
// through x/image codecs, grounded on video_chip.go's scaleImageToMode
// (here delegated to x/image/draw instead of hand-rolled resampling).
package halftone

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Raster is an output sheet: one Form per output channel (separation),
// convertible to a standard library image for display or encoding.
type Raster struct {
	Width, Height int
	Depth         DepthShift
	Channels      map[string]*Form
}

// NewRaster allocates a blank raster of the given size and depth with no
// channels; AddChannel adds output separations as they're needed.
func NewRaster(width, height int, depth DepthShift) *Raster {
	return &Raster{Width: width, Height: height, Depth: depth, Channels: make(map[string]*Form)}
}

// AddChannel allocates a fresh, zeroed Form for the named channel
// (colorant or "K" for composite gray) sized to the raster's dimensions.
func (r *Raster) AddChannel(name string) *Form {
	f := NewForm(BandBitmap, r.Width, r.Height, r.Depth)
	r.Channels[name] = f
	return f
}

// ToGray renders the named channel as an image.Gray: pixel value 0 becomes
// Gray 255 (white) and the maximum pixel value becomes Gray 0 (black),
// suitable for preview or PNG encoding.
func (r *Raster) ToGray(channel string) (*image.Gray, bool) {
	f, ok := r.Channels[channel]
	if !ok {
		return nil, false
	}
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	maxVal := (1 << uint(r.Depth.BitsPerPixel())) - 1
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			v := getPixel(f, x, y, r.Depth)
			level := 255 - uint8(int(v)*255/maxVal)
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img, true
}

// Composite renders every channel into a single image.NRGBA by treating
// each named channel as subtractive ink (CMYK-ish blend over white),
// falling back to a grayscale blend when fewer than the CMYK channel
// names are present. cmd/htdemo does not use it; its preview comes from
// ToGray.
func (r *Raster) Composite() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			img.SetNRGBA(x, y, r.compositePixel(x, y))
		}
	}
	return img
}

func (r *Raster) compositePixel(x, y int) color.NRGBA {
	maxVal := float64((1 << uint(r.Depth.BitsPerPixel())) - 1)
	c, m, ye, k := 0.0, 0.0, 0.0, 0.0
	if f, ok := r.Channels["C"]; ok {
		c = float64(getPixel(f, x, y, r.Depth)) / maxVal
	}
	if f, ok := r.Channels["M"]; ok {
		m = float64(getPixel(f, x, y, r.Depth)) / maxVal
	}
	if f, ok := r.Channels["Y"]; ok {
		ye = float64(getPixel(f, x, y, r.Depth)) / maxVal
	}
	if f, ok := r.Channels["K"]; ok {
		k = float64(getPixel(f, x, y, r.Depth)) / maxVal
	}
	rr := 255 * (1 - c) * (1 - k)
	gg := 255 * (1 - m) * (1 - k)
	bb := 255 * (1 - ye) * (1 - k)
	return color.NRGBA{R: uint8(rr), G: uint8(gg), B: uint8(bb), A: 255}
}

// ScaleForPreview resizes src to width x height using x/image/draw's
// approximate bilinear scaler, the library-backed replacement for
// video_chip.go's hand-rolled scaleImageToMode.
func ScaleForPreview(src image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
