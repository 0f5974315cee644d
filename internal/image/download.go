package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

var (
	// ErrNoImage means the upload was missing or could not be decoded. The
	// caller shows the blank frame instead.
	ErrNoImage = errors.New("no usable image provided")
	// ErrFrameUnavailable means the frame asset is missing or corrupt.
	ErrFrameUnavailable = errors.New("frame image unavailable")
)

// BytesGetter fetches a remote resource.
type BytesGetter interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// MaxImagePixels bounds the declared size of a photo. The header is checked
// before decoding, so a small file cannot claim a huge canvas.
const MaxImagePixels = 50_000_000

// DecodeImage decodes a JPEG or PNG stream, applying EXIF orientation.
func DecodeImage(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrNoImage, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrNoImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrNoImage, cfg.Width, cfg.Height, MaxImagePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImage, err)
	}
	return img, nil
}

// DownloadImage fetches url with getter and decodes the body.
func DownloadImage(ctx context.Context, getter BytesGetter, url string) (image.Image, error) {
	body, err := getter.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s: %v", ErrNoImage, url, err)
	}
	return DecodeImage(bytes.NewReader(body))
}

// LoadFrame reads a frame asset from disk.
func LoadFrame(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrFrameUnavailable, path)
	}
	return imaging.Clone(img), nil
}
