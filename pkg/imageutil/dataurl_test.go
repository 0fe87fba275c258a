package imageutil

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripAndWrapRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		dataURL string
		mime    string
	}{
		{name: "jpeg", dataURL: "data:image/jpeg;base64,/9j/4AAQSkZJRg==", mime: "image/jpeg"},
		{name: "png", dataURL: "data:image/png;base64,iVBORw0KGgo=", mime: "image/png"},
		{name: "webp", dataURL: "data:image/webp;base64,UklGRg==", mime: "image/webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := Strip(tt.dataURL)
			assert.NotContains(t, payload, "base64,")
			assert.Equal(t, tt.dataURL, Wrap(tt.mime, payload))
		})
	}
}

func TestStripLeavesRawPayload(t *testing.T) {
	assert.Equal(t, "aGVsbG8=", Strip("aGVsbG8="))
	// Only image data URLs are stripped.
	assert.Equal(t, "data:application/pdf;base64,JVBERi0=", Strip("data:application/pdf;base64,JVBERi0="))
}

func TestParse(t *testing.T) {
	mimeType, payload, err := Parse("data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "AAAA", payload)

	for _, bad := range []string{"AAAA", "data:image/png,AAAA", "data:;base64,AAAA", "data:image/png;base64"} {
		_, _, err := Parse(bad)
		assert.ErrorIs(t, err, ErrNotDataURL, bad)
	}
}

func TestEncodeDecode(t *testing.T) {
	dataURL := Encode("text/plain", []byte("hello"))
	assert.Equal(t, "data:text/plain;base64,aGVsbG8=", dataURL)

	data, mimeType, err := Decode(dataURL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, "text/plain", mimeType)
}

func TestReadWriteFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	dataURL, err := EncodePNG(img)
	require.NoError(t, err)
	require.NoError(t, WriteFile(src, dataURL))

	read, err := ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, dataURL, read)

	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{2048, 1024, 1024, 1024, 512},
		{1024, 2048, 1024, 512, 1024},
		{800, 600, 1024, 800, 600},
		{1500, 1500, 1000, 1000, 1000},
	}
	for _, tt := range tests {
		w, h := FitWithin(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w)
		assert.Equal(t, tt.wantH, h)
	}
}

func TestCompress(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		for y := 0; y < 200; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	dataURL, err := EncodePNG(img)
	require.NoError(t, err)

	out, err := Compress(dataURL, 100)
	require.NoError(t, err)

	mimeType, _, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)

	decoded, err := DecodeImage(out)
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(5, 5, color.RGBA{G: 255, A: 255})

	out := Crop(img, image.Rect(5, 5, 20, 8))
	assert.Equal(t, 5, out.Bounds().Dx())
	assert.Equal(t, 3, out.Bounds().Dy())
	_, g, _, _ := out.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), g)
}
