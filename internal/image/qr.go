package imagepkg

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	qrSizeRatio   = 0.15
	qrMarginRatio = 0.02
)

// GenerateQRPNG returns PNG bytes of a QR code for the given text.
func GenerateQRPNG(text string, size int) ([]byte, error) {
	pngBytes, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	// validate png decode
	if _, err := png.Decode(bytes.NewReader(pngBytes)); err != nil {
		return nil, fmt.Errorf("decode qr png: %w", err)
	}
	return pngBytes, nil
}

// GenerateQRImage returns a size x size QR code image for composition.
func GenerateQRImage(text string, size int) (image.Image, error) {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	img := q.Image(size)
	if img.Bounds().Dx() != size {
		// go-qrcode grows the image when size is below the module minimum.
		img = imaging.Resize(img, size, size, imaging.NearestNeighbor)
	}
	return img, nil
}

// StampQR pastes a QR code for text in the top-right corner of base.
func StampQR(base image.Image, text string) (*image.NRGBA, error) {
	b := base.Bounds()
	side := max(int(float64(min(b.Dx(), b.Dy()))*qrSizeRatio), 1)
	margin := int(float64(b.Dy()) * qrMarginRatio)

	qr, err := GenerateQRImage(text, side)
	if err != nil {
		return nil, err
	}
	return imaging.Paste(base, qr, image.Pt(b.Dx()-side-margin, margin)), nil
}
