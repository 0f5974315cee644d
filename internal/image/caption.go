package imagepkg

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Caption sizing and plate geometry, in pixels unless noted.
const (
	BaseFontSize = 64
	MinFontSize  = 16
	FontSizeStep = 2

	maxTextWidthRatio = 0.8
	paddingRatio      = 0.02

	plateAlpha   = 120
	plateRadius  = 20
	platePadX    = 20
	platePadY    = 10
	outlineWidth = 2
)

// CaptionStyle chooses how caption text is painted.
type CaptionStyle string

const (
	// StylePlain paints white text.
	StylePlain CaptionStyle = "plain"
	// StyleOutline paints a red stroke under white text.
	StyleOutline CaptionStyle = "outline"
)

var (
	textColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
)

// ParseCaptionStyle accepts "plain", "outline" or "" (returned as "").
func ParseCaptionStyle(s string) (CaptionStyle, error) {
	switch CaptionStyle(s) {
	case "", StylePlain, StyleOutline:
		return CaptionStyle(s), nil
	}
	return "", fmt.Errorf("invalid caption style %q: must be plain or outline", s)
}

// CaptionLayout records where the caption ended up.
type CaptionLayout struct {
	// FontSize is the pixel size the text was drawn at. With the fallback
	// font this is the bitmap face's height, not the fitted size.
	FontSize int
	// Box is the text bounding box; the plate extends beyond it.
	Box      image.Rectangle
	Fallback bool
}

// FitFontSize returns the largest size, stepping down from BaseFontSize, at
// which text is no wider than maxWidth. If nothing fits before reaching
// MinFontSize, MinFontSize is returned regardless. The fallback font has a
// single size, so fitting is skipped and MinFontSize is returned.
func FitFontSize(text string, maxWidth int, f *Font) int {
	if f.Fallback() {
		return MinFontSize
	}
	size := BaseFontSize
	for size > MinFontSize {
		face, err := f.Face(size)
		if err != nil {
			size -= FontSizeStep
			continue
		}
		w := MeasureText(face, text).Dx()
		face.Close()
		if w <= maxWidth {
			return size
		}
		size -= FontSizeStep
	}
	return size
}

// MeasureText returns the pixel bounds of text drawn with its origin (the
// baseline start) at (0, 0).
func MeasureText(face font.Face, text string) image.Rectangle {
	b, _ := font.BoundString(face, text)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}

// DrawCaption stamps text near the bottom of base on a translucent rounded
// plate and returns the new image. base is not modified.
func DrawCaption(base image.Image, text string, f *Font, style CaptionStyle) (*image.NRGBA, CaptionLayout, error) {
	if f == nil {
		f = DefaultFont()
	}
	bounds := base.Bounds()
	fw, fh := bounds.Dx(), bounds.Dy()

	maxWidth := int(float64(fw) * maxTextWidthRatio)
	size := FitFontSize(text, maxWidth, f)

	face, err := f.Face(size)
	if err != nil {
		return nil, CaptionLayout{}, err
	}
	defer face.Close()

	glyphs := MeasureText(face, text)
	tw, th := glyphs.Dx(), glyphs.Dy()
	padding := int(float64(fh) * paddingRatio)
	x := floorDiv(fw-tw, 2)
	y := fh - th - padding*3
	box := image.Rect(x, y, x+tw, y+th)

	plate, err := drawPlate(fw, fh, image.Rect(x-platePadX, y-platePadY, x+tw+platePadX, y+th+platePadY))
	if err != nil {
		return nil, CaptionLayout{}, err
	}
	out := imaging.Overlay(base, plate, image.Pt(0, 0), 1.0)

	// Put the top-left of the glyph bounds at (x, y).
	dot := fixed.P(x-glyphs.Min.X, y-glyphs.Min.Y)
	d := &font.Drawer{Dst: out, Face: face}
	if style == StyleOutline {
		d.Src = image.NewUniform(outlineColor)
		for dx := -outlineWidth; dx <= outlineWidth; dx++ {
			for dy := -outlineWidth; dy <= outlineWidth; dy++ {
				d.Dot = dot.Add(fixed.P(dx, dy))
				d.DrawString(text)
			}
		}
	}
	d.Src = image.NewUniform(textColor)
	d.Dot = dot
	d.DrawString(text)

	return out, CaptionLayout{FontSize: f.PixelSize(size), Box: box, Fallback: f.Fallback()}, nil
}

// drawPlate renders the caption plate on a transparent w x h layer.
func drawPlate(w, h int, r image.Rectangle) (image.Image, error) {
	dc := gg.NewContext(w, h)
	defer dc.Close()

	dc.SetRGBA(0, 0, 0, plateAlpha/255.0)
	dc.DrawRoundedRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), plateRadius)
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("draw caption plate: %w", err)
	}
	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("flush caption plate: %w", err)
	}
	return dc.Image(), nil
}
