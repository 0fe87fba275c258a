package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	_ "image/gif"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxDimension bounds the longer side of images sent to the model.
const DefaultMaxDimension = 1024

// FitWithin scales (w, h) down so the longer side is at most maxDim, keeping the aspect ratio.
func FitWithin(w, h, maxDim int) (int, int) {
	if w > h {
		if w > maxDim {
			h = int(math.Round(float64(h) * float64(maxDim) / float64(w)))
			w = maxDim
		}
	} else if h > maxDim {
		w = int(math.Round(float64(w) * float64(maxDim) / float64(h)))
		h = maxDim
	}
	return w, h
}

// DecodeImage decodes the image carried by a data URL.
func DecodeImage(dataURL string) (image.Image, error) {
	data, _, err := Decode(dataURL)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Compress resizes an image data URL to fit maxDim and re-encodes it as JPEG at quality 85.
func Compress(dataURL string, maxDim int) (string, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	src, err := DecodeImage(dataURL)
	if err != nil {
		return "", err
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	return EncodeJPEG(dst, 85)
}

// Crop copies the part of img inside r into a new image anchored at the origin.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// EncodeJPEG returns img as a JPEG data URL.
func EncodeJPEG(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return Encode("image/jpeg", buf.Bytes()), nil
}

// EncodePNG returns img as a PNG data URL.
func EncodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return Encode("image/png", buf.Bytes()), nil
}
