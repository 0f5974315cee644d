package imagepkg

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	woff "github.com/tdewolff/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// ErrFontUnavailable is returned alongside the built-in fallback font when no
// candidate font file could be loaded.
var ErrFontUnavailable = errors.New("caption font unavailable")

// Font is a caption font. A Font without outline data renders with the
// built-in bitmap face at a fixed size.
type Font struct {
	sfnt *opentype.Font
	// Source is the file the font was loaded from, or "builtin".
	Source string
}

// DefaultFont returns the built-in fallback font.
func DefaultFont() *Font {
	return &Font{Source: "builtin"}
}

// ParseFont wraps raw SFNT or WOFF2 data.
func ParseFont(data []byte, source string) (*Font, error) {
	data, err := maybeConvertWOFF2(source, data)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", source, err)
	}
	return &Font{sfnt: f, Source: source}, nil
}

// LoadFont returns the first candidate that parses. If none does, it returns
// the built-in font together with an error wrapping ErrFontUnavailable, so
// callers can log the problem and keep going.
func LoadFont(candidates ...string) (*Font, error) {
	var errs []error
	for _, path := range candidates {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("read font: %w", err))
			continue
		}
		f, err := ParseFont(data, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return f, nil
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no font configured"))
	}
	return DefaultFont(), fmt.Errorf("%w: %w", ErrFontUnavailable, errors.Join(errs...))
}

// FontCandidates lists primary followed by every file matched by the glob
// patterns, without duplicates. Bad patterns are skipped.
func FontCandidates(primary string, patterns []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	add(primary)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			add(m)
		}
	}
	return out
}

// Fallback reports whether the font is the built-in bitmap face.
func (f *Font) Fallback() bool {
	return f == nil || f.sfnt == nil
}

// Face returns a face at size pixels. The fallback font ignores size.
func (f *Font) Face(size int) (font.Face, error) {
	if f.Fallback() {
		return basicfont.Face7x13, nil
	}
	face, err := opentype.NewFace(f.sfnt, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}

// PixelSize returns the size a face requested at size actually renders at.
func (f *Font) PixelSize(size int) int {
	if f.Fallback() {
		return basicfont.Face7x13.Height
	}
	return size
}

// maybeConvertWOFF2 converts WOFF2 font data to SFNT format if needed.
func maybeConvertWOFF2(path string, data []byte) ([]byte, error) {
	if !isWOFF2(path, data) {
		return data, nil
	}
	sfnt, err := woff.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("convert woff2 to sfnt: %w", err)
	}
	return sfnt, nil
}

// isWOFF2 checks the extension or the "wOF2" magic.
func isWOFF2(path string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(path), ".woff2") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "wOF2"
}
