package imagepkg

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Placement limits for the manual strategy.
const (
	DefaultScalePercent = 100
	MinScalePercent     = 50
	MaxScalePercent     = 200
	MaxOffset           = 500
	MaxRotation         = 180
)

// Placement is the user-adjusted position of the photo inside the frame.
// Rotation is in degrees, counter-clockwise.
type Placement struct {
	ScalePercent int     `json:"scale"`
	OffsetX      int     `json:"offset_x"`
	OffsetY      int     `json:"offset_y"`
	Rotation     float64 `json:"rotation"`
}

// DefaultPlacement is the unscaled, centered placement.
func DefaultPlacement() Placement {
	return Placement{ScalePercent: DefaultScalePercent}
}

// Normalize clamps every field into its accepted range. A zero scale is
// treated as the default.
func (p Placement) Normalize() Placement {
	if p.ScalePercent == 0 {
		p.ScalePercent = DefaultScalePercent
	}
	p.ScalePercent = clamp(p.ScalePercent, MinScalePercent, MaxScalePercent)
	p.OffsetX = clamp(p.OffsetX, -MaxOffset, MaxOffset)
	p.OffsetY = clamp(p.OffsetY, -MaxOffset, MaxOffset)
	if p.Rotation > MaxRotation {
		p.Rotation = MaxRotation
	}
	if p.Rotation < -MaxRotation {
		p.Rotation = -MaxRotation
	}
	return p
}

// FitCrop scales img to cover a fw x fh canvas and crops the overflow on one
// axis, keeping the center. The result is always exactly fw x fh.
//
// The source is cropped to the frame's aspect ratio before resizing, so the
// working image is never larger than the source or the frame, however
// extreme the photo's aspect ratio.
func FitCrop(img image.Image, fw, fh int) *image.NRGBA {
	b := img.Bounds()
	uw, uh := b.Dx(), b.Dy()

	// Compare uw/uh against fw/fh without floating point.
	var keep image.Rectangle
	if uw*fh > fw*uh {
		cw := min(max(uh*fw/fh, 1), uw)
		left := (uw - cw) / 2
		keep = image.Rect(left, 0, left+cw, uh)
	} else {
		ch := min(max(uw*fh/fw, 1), uh)
		top := (uh - ch) / 2
		keep = image.Rect(0, top, uw, top+ch)
	}
	cropped := imaging.Crop(img, keep.Add(b.Min))
	return imaging.Resize(cropped, fw, fh, imaging.Lanczos)
}

// Place scales img uniformly, centers it on a transparent fw x fh canvas and
// shifts it by the placement offsets. Anything outside the canvas is clipped.
func Place(img image.Image, fw, fh int, p Placement) *image.NRGBA {
	p = p.Normalize()

	src := img
	if p.Rotation != 0 {
		src = imaging.Rotate(img, p.Rotation, color.Transparent)
	}

	b := src.Bounds()
	sw := max(b.Dx()*p.ScalePercent/100, 1)
	sh := max(b.Dy()*p.ScalePercent/100, 1)
	scaled := imaging.Resize(src, sw, sh, imaging.Lanczos)

	canvas := imaging.New(fw, fh, color.Transparent)
	pos := image.Pt(floorDiv(fw-sw, 2)+p.OffsetX, floorDiv(fh-sh, 2)+p.OffsetY)
	return imaging.Overlay(canvas, scaled, pos, 1.0)
}

// Layer composites the frame on top of the placed photo. Transparent frame
// regions reveal the photo; opaque ones hide it.
func Layer(placed, frame image.Image) *image.NRGBA {
	return imaging.Overlay(placed, frame, image.Pt(0, 0), 1.0)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
