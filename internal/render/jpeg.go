// Package render re-encodes the corrected photo for download.
package render

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"passportphoto/internal/domain"
)

const (
	// DownloadQuality is 0.95 expressed on the encoder's 1-100 scale.
	DownloadQuality = 95
	// DownloadFileName is the name offered to the browser.
	DownloadFileName = "passport-photo.jpeg"
	// DownloadMIMEType is the Content-Type of the download.
	DownloadMIMEType = "image/jpeg"
)

// Size is the natural pixel size of an image.
type Size struct {
	Width  int
	Height int
}

// JPEG decodes data, paints it onto a surface of its natural size and
// encodes that surface as JPEG.
func JPEG(data []byte, quality int) ([]byte, Size, error) {
	if len(data) == 0 {
		return nil, Size{}, domain.DownloadError("Failed to load the edited image for download.", errors.New("no image data"))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Size{}, domain.DownloadError("Failed to load the edited image for download.", err)
	}

	surface, err := newSurface(img.Bounds().Dx(), img.Bounds().Dy())
	if err != nil {
		return nil, Size{}, domain.DownloadError("Could not process image for download.", err)
	}
	draw.Draw(surface, surface.Bounds(), img, img.Bounds().Min, draw.Src)

	if quality < 1 || quality > 100 {
		quality = DownloadQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, surface, &jpeg.Options{Quality: quality}); err != nil {
		return nil, Size{}, domain.DownloadError("Could not process image for download.", err)
	}
	return buf.Bytes(), Size{Width: surface.Bounds().Dx(), Height: surface.Bounds().Dy()}, nil
}

// Dimensions reads only the header of an encoded image.
func Dimensions(data []byte) (Size, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Size{}, err
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, nil
}

func newSurface(width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New("render: image has no pixels")
	}
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}
