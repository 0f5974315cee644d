package imagepkg

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/text/unicode/norm"
)

// ErrNoFrame is returned by Compose when the request carries no frame.
var ErrNoFrame = errors.New("frame image is required")

// Strategy selects how the photo is placed inside the frame.
type Strategy string

const (
	// StrategyAuto covers the frame and crops the overflow.
	StrategyAuto Strategy = "auto"
	// StrategyManual uses the request's scale, offsets and rotation.
	StrategyManual Strategy = "manual"
)

// ParseStrategy accepts "auto", "manual" or "" (auto).
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyManual:
		return StrategyManual, nil
	}
	return "", fmt.Errorf("invalid mode %q: must be auto or manual", s)
}

// ComposeRequest carries everything one composition needs.
type ComposeRequest struct {
	Frame image.Image
	// Photo may be nil, in which case the blank frame is returned.
	Photo     image.Image
	Strategy  Strategy
	Placement Placement

	AddCaption bool
	Caption    string
	// Style defaults to plain for StrategyAuto and outline for StrategyManual.
	Style CaptionStyle
	Font  *Font

	QRText string
}

// Result is a finished composite.
type Result struct {
	Image *image.NRGBA
	// FrameOnly is set when no photo was supplied.
	FrameOnly bool
	// Caption is nil when no caption was drawn.
	Caption *CaptionLayout
}

// ResolveCaption picks the caption text: a non-blank override wins over the
// date message. The override is NFC-normalized.
func ResolveCaption(override, message string) string {
	if o := strings.TrimSpace(override); o != "" {
		return norm.NFC.String(o)
	}
	return message
}

// Compose builds the composite photo -> frame -> QR badge -> caption. The
// output always has the frame's dimensions.
func Compose(req ComposeRequest) (*Result, error) {
	if req.Frame == nil {
		return nil, ErrNoFrame
	}
	frame := imaging.Clone(req.Frame)
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()

	if req.Photo == nil {
		return &Result{Image: frame, FrameOnly: true}, nil
	}

	var placed *image.NRGBA
	switch req.Strategy {
	case StrategyManual:
		placed = Place(req.Photo, fw, fh, req.Placement)
	default:
		placed = FitCrop(req.Photo, fw, fh)
	}
	out := Layer(placed, frame)

	if strings.TrimSpace(req.QRText) != "" {
		stamped, err := StampQR(out, req.QRText)
		if err != nil {
			return nil, fmt.Errorf("stamp qr: %w", err)
		}
		out = stamped
	}

	res := &Result{Image: out}
	text := strings.TrimSpace(req.Caption)
	if !req.AddCaption || text == "" {
		return res, nil
	}

	style := req.Style
	if style == "" {
		style = StylePlain
		if req.Strategy == StrategyManual {
			style = StyleOutline
		}
	}
	captioned, layout, err := DrawCaption(out, text, req.Font, style)
	if err != nil {
		return nil, fmt.Errorf("draw caption: %w", err)
	}
	res.Image = captioned
	res.Caption = &layout
	return res, nil
}

// OutputFormat is the encoding of the response image.
type OutputFormat string

const (
	FormatPNG  OutputFormat = "png"
	FormatJPEG OutputFormat = "jpeg"
)

// ParseOutputFormat accepts png, jpeg, jpg or "" (png).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("invalid format %q: must be png or jpeg", s)
}

// ContentType returns the MIME type for the format.
func (f OutputFormat) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Filename returns the suggested download name.
func (f OutputFormat) Filename() string {
	if f == FormatJPEG {
		return "christmas_output.jpg"
	}
	return "christmas_output.png"
}

// Encode writes img in the given format. JPEG output is flattened onto white.
func Encode(w io.Writer, img image.Image, f OutputFormat, jpegQuality int) error {
	if f == FormatJPEG {
		b := img.Bounds()
		flat := imaging.New(b.Dx(), b.Dy(), color.White)
		flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)
		if err := imaging.Encode(w, flat, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
		return nil
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
