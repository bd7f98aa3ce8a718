//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecoderRejectsUndecodableData(t *testing.T) {
	d := NewDecoder(DefaultMinImageSide)

	// каждый неудачный разбор освобождает свою матрицу
	for i := 0; i < 100; i++ {
		_, _, _, err := d.Decode([]byte("definitely not an image"))
		require.ErrorIs(t, err, ErrNotImage)
	}

	_, _, _, err := d.Decode(nil)
	require.ErrorIs(t, err, ErrNotImage)
}

func TestDecoderRejectsSmallImage(t *testing.T) {
	d := NewDecoder(64)

	_, _, _, err := d.Decode(encodePNG(t, 10, 10))
	require.ErrorIs(t, err, ErrImageTooSmall)
}
