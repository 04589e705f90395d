package processor

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestThumbnail checks that previews fit the requested box
func TestThumbnail(t *testing.T) {
	processor := NewImageProcessor()

	tests := []struct {
		name           string
		originalWidth  int
		originalHeight int
		maxWidth       int
		maxHeight      int
	}{
		{
			name:           "landscape photo",
			originalWidth:  800,
			originalHeight: 600,
			maxWidth:       320,
			maxHeight:      240,
		},
		{
			name:           "portrait prescription",
			originalWidth:  600,
			originalHeight: 800,
			maxWidth:       320,
			maxHeight:      240,
		},
		{
			name:           "small strip is not enlarged",
			originalWidth:  100,
			originalHeight: 50,
			maxWidth:       320,
			maxHeight:      240,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := encodePNG(t, tt.originalWidth, tt.originalHeight)

			uri, err := processor.Thumbnail(bytes.NewReader(src), tt.maxWidth, tt.maxHeight)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

			thumb := decodeDataURI(t, uri)
			assert.LessOrEqual(t, thumb.Bounds().Dx(), tt.maxWidth)
			assert.LessOrEqual(t, thumb.Bounds().Dy(), tt.maxHeight)
			assert.LessOrEqual(t, thumb.Bounds().Dx(), tt.originalWidth)
		})
	}
}

func TestThumbnailRejectsNonImage(t *testing.T) {
	processor := NewImageProcessor()

	_, err := processor.Thumbnail(strings.NewReader("definitely not an image"), 100, 100)
	assert.Error(t, err)
}

// TestDownscale checks the optional pre-upload resize
func TestDownscale(t *testing.T) {
	processor := NewImageProcessor()

	tests := []struct {
		name        string
		fileName    string
		width       int
		height      int
		maxDim      int
		wantChanged bool
		wantType    string
	}{
		{
			name:     "disabled",
			fileName: "pill.png",
			width:    2000,
			height:   1500,
			maxDim:   0,
		},
		{
			name:     "already small",
			fileName: "pill.png",
			width:    640,
			height:   480,
			maxDim:   1024,
		},
		{
			name:        "large png stays png",
			fileName:    "pill.png",
			width:       2000,
			height:      1500,
			maxDim:      1024,
			wantChanged: true,
			wantType:    "image/png",
		},
		{
			name:        "large jpeg",
			fileName:    "pill.JPG",
			width:       1500,
			height:      2000,
			maxDim:      1024,
			wantChanged: true,
			wantType:    "image/jpeg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := encodePNG(t, tt.width, tt.height)

			data, contentType, err := processor.Downscale(bytes.NewReader(src), tt.fileName, tt.maxDim)
			require.NoError(t, err)

			if !tt.wantChanged {
				assert.Nil(t, data)
				return
			}

			require.NotNil(t, data)
			assert.Equal(t, tt.wantType, contentType)

			img, _, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.LessOrEqual(t, img.Bounds().Dx(), tt.maxDim)
			assert.LessOrEqual(t, img.Bounds().Dy(), tt.maxDim)
		})
	}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fillImageWithColor(img, color.RGBA{R: 100, G: 150, B: 200, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURI(t *testing.T, uri string) image.Image {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

// fillImageWithColor fills the whole image with one color
func fillImageWithColor(img *image.RGBA, color color.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, color)
		}
	}
}
