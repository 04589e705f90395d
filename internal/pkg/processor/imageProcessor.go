package processor

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

type ImageProcessor interface {
	// Thumbnail renders a preview that fits in width x height as a JPEG data URI.
	Thumbnail(r io.Reader, width, height int) (string, error)
	// Downscale shrinks images larger than maxDimension on either side and
	// returns the re-encoded bytes with their content type. Nil data means
	// the original should be sent as is.
	Downscale(r io.Reader, name string, maxDimension int) (data []byte, contentType string, err error)
}

type imageProcessor struct {
	jpegQuality int
}

func NewImageProcessor() ImageProcessor {
	return &imageProcessor{jpegQuality: 85}
}

func (p *imageProcessor) Thumbnail(r io.Reader, width, height int) (string, error) {
	img, err := p.loadImage(r)
	if err != nil {
		return "", err
	}

	thumb := imaging.Fit(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (p *imageProcessor) Downscale(r io.Reader, name string, maxDimension int) ([]byte, string, error) {
	if maxDimension <= 0 {
		return nil, "", nil
	}

	img, err := p.loadImage(r)
	if err != nil {
		return nil, "", err
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxDimension && bounds.Dy() <= maxDimension {
		return nil, "", nil
	}

	resized := imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	// anything that is not a JPEG is kept lossless
	format, contentType := imaging.JPEG, "image/jpeg"
	if f, err := imaging.FormatFromFilename(name); err == nil && f != imaging.JPEG {
		format, contentType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), contentType, nil
}

// loadImage decodes any format imaging knows, honouring EXIF orientation so
// phone camera shots come out upright.
func (p *imageProcessor) loadImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("failed to load image: empty bounds")
	}
	return img, nil
}
