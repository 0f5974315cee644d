package main

import (
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, renderFrame(path, 300, 200))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	frame := imaging.Clone(img)
	assert.Equal(t, 300, frame.Bounds().Dx())
	assert.Equal(t, 200, frame.Bounds().Dy())

	assert.Equal(t, uint8(0), frame.NRGBAAt(150, 100).A, "well is transparent")
	assert.Equal(t, uint8(255), frame.NRGBAAt(3, 100).A, "border is opaque")
}
