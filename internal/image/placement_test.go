package imagepkg

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

// stripes returns a w x h image split into three vertical bands.
func stripes(w, h int) *image.NRGBA {
	img := imaging.New(w, h, red)
	img = imaging.Paste(img, imaging.New(w/3, h, green), image.Pt(w/3, 0))
	img = imaging.Paste(img, imaging.New(w-2*(w/3), h, blue), image.Pt(2*(w/3), 0))
	return img
}

func TestFitCropDimensions(t *testing.T) {
	frames := []struct {
		name   string
		fw, fh int
	}{
		{"portrait", 108, 192},
		{"landscape", 192, 108},
		{"square", 150, 150},
	}
	photos := []image.Point{
		{400, 300}, {300, 400}, {100, 100}, {17, 1000}, {1000, 17}, {1, 1}, {108, 192}, {216, 384},
		{1, 10000}, {10000, 1}, {3, 7}, {1, 2},
	}

	for _, f := range frames {
		for _, p := range photos {
			out := FitCrop(imaging.New(p.X, p.Y, red), f.fw, f.fh)
			assert.Equal(t, f.fw, out.Bounds().Dx(), "%s frame, %v photo", f.name, p)
			assert.Equal(t, f.fh, out.Bounds().Dy(), "%s frame, %v photo", f.name, p)
		}
	}
}

func TestFitCropLandscapePhotoIntoPortraitFrame(t *testing.T) {
	// 4000x3000 keeps columns [1156,2843), which are resized to 1080x1920.
	out := FitCrop(stripes(4000, 3000), 1080, 1920)
	require.Equal(t, image.Rect(0, 0, 1080, 1920), out.Bounds())

	// Bands in the output: red [0,113) green [113,966) blue [966,1080).
	assert.Equal(t, red, out.NRGBAAt(50, 960))
	assert.Equal(t, green, out.NRGBAAt(540, 960))
	assert.Equal(t, blue, out.NRGBAAt(1030, 960))
}

func TestFitCropExtremeAspectOnFullSizeFrame(t *testing.T) {
	for _, p := range []image.Point{{1, 10000}, {10000, 1}, {1081, 1921}} {
		out := FitCrop(imaging.New(p.X, p.Y, red), 1080, 1920)
		require.Equal(t, image.Rect(0, 0, 1080, 1920), out.Bounds(), "%v photo", p)
		assert.Equal(t, red, out.NRGBAAt(540, 960), "%v photo", p)
	}
}

func TestFitCropSubImage(t *testing.T) {
	// Columns [100,300) of the stripes: green then blue, origin at x=100.
	sub := stripes(300, 100).SubImage(image.Rect(100, 0, 300, 100))
	out := FitCrop(sub, 50, 50)
	require.Equal(t, image.Rect(0, 0, 50, 50), out.Bounds())
	assert.Equal(t, green, out.NRGBAAt(5, 25))
	assert.Equal(t, blue, out.NRGBAAt(45, 25))
}

func TestFitCropPortraitPhotoIntoLandscapeFrame(t *testing.T) {
	// Tall photo: width matches, top and bottom are cropped equally.
	img := imaging.New(300, 900, red)
	img = imaging.Paste(img, imaging.New(300, 300, green), image.Pt(0, 300))

	out := FitCrop(img, 200, 100)
	require.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())
	assert.Equal(t, green, out.NRGBAAt(100, 50))
}

func TestPlaceCentersUnscaledImage(t *testing.T) {
	out := Place(imaging.New(100, 60, red), 200, 200, DefaultPlacement())
	require.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds())

	assert.Equal(t, red, out.NRGBAAt(50, 70))
	assert.Equal(t, red, out.NRGBAAt(149, 129))
	assert.Equal(t, uint8(0), out.NRGBAAt(49, 70).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(150, 129).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(100, 130).A)
}

func TestPlaceOffsetAndScale(t *testing.T) {
	out := Place(imaging.New(100, 60, red), 200, 200, Placement{ScalePercent: 100, OffsetX: 10, OffsetY: -20})
	assert.Equal(t, red, out.NRGBAAt(60, 50))
	assert.Equal(t, uint8(0), out.NRGBAAt(59, 50).A)

	out = Place(imaging.New(100, 60, red), 200, 200, Placement{ScalePercent: 50})
	assert.Equal(t, red, out.NRGBAAt(100, 100))
	assert.Equal(t, uint8(0), out.NRGBAAt(74, 100).A)
	assert.Equal(t, uint8(0), out.NRGBAAt(125, 100).A)
}

func TestPlaceClipsOutsideCanvas(t *testing.T) {
	out := Place(imaging.New(100, 100, red), 120, 80, Placement{ScalePercent: 200, OffsetX: 500, OffsetY: -500})
	assert.Equal(t, image.Rect(0, 0, 120, 80), out.Bounds())
	assert.Equal(t, uint8(0), out.NRGBAAt(0, 79).A)
}

func TestPlaceRotationKeepsCanvasSize(t *testing.T) {
	out := Place(imaging.New(100, 40, red), 200, 200, Placement{ScalePercent: 100, Rotation: 90})
	assert.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds())
	// Rotated a quarter turn the strip is 40 wide and 100 tall.
	assert.Equal(t, red, out.NRGBAAt(100, 60))
	assert.Equal(t, uint8(0), out.NRGBAAt(60, 100).A)
}

func TestPlacementNormalize(t *testing.T) {
	tests := []struct {
		in   Placement
		want Placement
	}{
		{Placement{}, Placement{ScalePercent: 100}},
		{Placement{ScalePercent: 10}, Placement{ScalePercent: 50}},
		{Placement{ScalePercent: 999, OffsetX: -900, OffsetY: 900}, Placement{ScalePercent: 200, OffsetX: -500, OffsetY: 500}},
		{Placement{ScalePercent: 120, Rotation: 270}, Placement{ScalePercent: 120, Rotation: 180}},
		{Placement{ScalePercent: 120, Rotation: -270}, Placement{ScalePercent: 120, Rotation: -180}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
}

func TestLayerFrameOnTop(t *testing.T) {
	// Opaque white border with a transparent 60x60 well in the middle.
	frame := imaging.New(100, 100, color.White)
	frame = imaging.Paste(frame, imaging.New(60, 60, color.Transparent), image.Pt(20, 20))

	out := Layer(imaging.New(100, 100, red), frame)
	assert.Equal(t, red, out.NRGBAAt(50, 50))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(5, 5))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, floorDiv(5, 2))
	assert.Equal(t, -3, floorDiv(-5, 2))
	assert.Equal(t, -2, floorDiv(-4, 2))
	assert.Equal(t, 0, floorDiv(0, 2))
}
