package imagepkg

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFrame is an opaque gold border around a transparent well.
func testFrame(w, h int) *image.NRGBA {
	frame := imaging.New(w, h, color.NRGBA{R: 212, G: 175, B: 55, A: 255})
	border := min(w, h) / 10
	well := imaging.New(w-2*border, h-2*border, color.Transparent)
	return imaging.Paste(frame, well, image.Pt(border, border))
}

func TestComposeRequiresFrame(t *testing.T) {
	_, err := Compose(ComposeRequest{Photo: imaging.New(10, 10, red)})
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestComposeWithoutPhotoReturnsFrame(t *testing.T) {
	frame := testFrame(90, 160)
	res, err := Compose(ComposeRequest{Frame: frame, AddCaption: true, Caption: "Merry Christmas"})
	require.NoError(t, err)
	assert.True(t, res.FrameOnly)
	assert.Nil(t, res.Caption)
	assert.Equal(t, frame.Pix, res.Image.Pix)
}

func TestComposeDimensionsMatchFrame(t *testing.T) {
	f := testFont(t)
	frames := []*image.NRGBA{testFrame(108, 192), testFrame(192, 108)}
	photos := []image.Image{imaging.New(400, 300, red), imaging.New(30, 500, blue), imaging.New(64, 64, green)}

	for _, frame := range frames {
		for _, photo := range photos {
			for _, strategy := range []Strategy{StrategyAuto, StrategyManual} {
				res, err := Compose(ComposeRequest{
					Frame:      frame,
					Photo:      photo,
					Strategy:   strategy,
					Placement:  Placement{ScalePercent: 150, OffsetX: 30, OffsetY: -40},
					AddCaption: true,
					Caption:    "Happy New Year",
					Font:       f,
					QRText:     "https://example.com/xmas",
				})
				require.NoError(t, err)
				assert.Equal(t, frame.Bounds(), res.Image.Bounds())
				assert.False(t, res.FrameOnly)
			}
		}
	}
}

func TestComposePhotoShowsThroughWell(t *testing.T) {
	frame := testFrame(100, 100)
	res, err := Compose(ComposeRequest{Frame: frame, Photo: imaging.New(50, 50, red)})
	require.NoError(t, err)

	assert.Equal(t, red, res.Image.NRGBAAt(50, 50))
	assert.Equal(t, frame.NRGBAAt(2, 2), res.Image.NRGBAAt(2, 2))
}

func TestComposeCaptionToggles(t *testing.T) {
	f := testFont(t)
	frame := testFrame(200, 300)
	photo := imaging.New(100, 100, blue)

	res, err := Compose(ComposeRequest{Frame: frame, Photo: photo, AddCaption: false, Caption: "Merry Christmas", Font: f})
	require.NoError(t, err)
	assert.Nil(t, res.Caption)

	res, err = Compose(ComposeRequest{Frame: frame, Photo: photo, AddCaption: true, Caption: "   ", Font: f})
	require.NoError(t, err)
	assert.Nil(t, res.Caption)

	res, err = Compose(ComposeRequest{Frame: frame, Photo: photo, AddCaption: true, Caption: "Merry Christmas", Font: f})
	require.NoError(t, err)
	require.NotNil(t, res.Caption)
	assert.LessOrEqual(t, res.Caption.Box.Dx(), 160)
}

func TestComposeDefaultStylePerStrategy(t *testing.T) {
	f := testFont(t)
	frame := imaging.New(400, 300, color.Black)
	photo := imaging.New(400, 300, color.Black)
	isRed := func(c color.NRGBA) bool { return c.R > 200 && c.G < 60 && c.B < 60 }

	auto, err := Compose(ComposeRequest{Frame: frame, Photo: photo, Strategy: StrategyAuto, AddCaption: true, Caption: "Noel", Font: f})
	require.NoError(t, err)
	assert.False(t, hasColor(auto.Image, auto.Image.Bounds(), isRed))

	manual, err := Compose(ComposeRequest{Frame: frame, Photo: photo, Strategy: StrategyManual, AddCaption: true, Caption: "Noel", Font: f})
	require.NoError(t, err)
	assert.True(t, hasColor(manual.Image, manual.Image.Bounds(), isRed))

	plain, err := Compose(ComposeRequest{Frame: frame, Photo: photo, Strategy: StrategyManual, Style: StylePlain, AddCaption: true, Caption: "Noel", Font: f})
	require.NoError(t, err)
	assert.False(t, hasColor(plain.Image, plain.Image.Bounds(), isRed))
}

func TestComposeIsIdempotent(t *testing.T) {
	f := testFont(t)
	req := ComposeRequest{
		Frame:      testFrame(120, 200),
		Photo:      stripes(300, 200),
		Strategy:   StrategyManual,
		Placement:  Placement{ScalePercent: 80, OffsetX: -15, OffsetY: 12, Rotation: 15},
		AddCaption: true,
		Caption:    "Merry Christmas",
		Font:       f,
		QRText:     "hello",
	}
	a, err := Compose(req)
	require.NoError(t, err)
	b, err := Compose(req)
	require.NoError(t, err)
	assert.Equal(t, a.Image.Pix, b.Image.Pix)
}

func TestComposeDoesNotMutateInputs(t *testing.T) {
	frame := testFrame(100, 100)
	photo := stripes(90, 60)
	frameCopy := imaging.Clone(frame)
	photoCopy := imaging.Clone(photo)

	_, err := Compose(ComposeRequest{Frame: frame, Photo: photo, AddCaption: true, Caption: "x", QRText: "q"})
	require.NoError(t, err)
	assert.Equal(t, frameCopy.Pix, frame.Pix)
	assert.Equal(t, photoCopy.Pix, photo.Pix)
}

func TestResolveCaption(t *testing.T) {
	assert.Equal(t, "date message", ResolveCaption("", "date message"))
	assert.Equal(t, "date message", ResolveCaption(" \t\n", "date message"))
	assert.Equal(t, "custom", ResolveCaption("  custom  ", "date message"))
	// Decomposed e + combining diaeresis becomes the precomposed rune.
	assert.Equal(t, "No\u00ebl", ResolveCaption("Noe\u0308l", ""))
	assert.Equal(t, "Caf\u00e9", ResolveCaption("Cafe\u0301", ""))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)

	s, err = ParseStrategy("manual")
	require.NoError(t, err)
	assert.Equal(t, StrategyManual, s)

	_, err = ParseStrategy("stretch")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	img := imaging.New(40, 30, color.NRGBA{R: 200, A: 128})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, FormatPNG, 90))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	buf.Reset()
	require.NoError(t, Encode(&buf, img, FormatJPEG, 90))
	decoded, err = jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}

func TestParseOutputFormat(t *testing.T) {
	tests := map[string]OutputFormat{"": FormatPNG, "png": FormatPNG, "JPG": FormatJPEG, "jpeg": FormatJPEG}
	for in, want := range tests {
		got, err := ParseOutputFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseOutputFormat("webp")
	assert.Error(t, err)

	assert.Equal(t, "christmas_output.png", FormatPNG.Filename())
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
}
