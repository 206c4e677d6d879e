package media

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"
)

// ThumbnailSizes are the square edge lengths generated for every logo
var ThumbnailSizes = []int{64, 128, 256}

const (
	thumbnailJPEGQuality = 85
	thumbnailWebPQuality = 80
)

// ThumbnailError is a failure to produce one thumbnail size
type ThumbnailError struct {
	Size int
	Err  error
}

// Error implements the error interface
func (e *ThumbnailError) Error() string {
	return fmt.Sprintf("thumbnail %dpx: %v", e.Size, e.Err)
}

// Unwrap returns the underlying error
func (e *ThumbnailError) Unwrap() error {
	return e.Err
}

// ThumbnailFormat returns the output format for thumbnails of a source format.
// GIF becomes PNG, WebP stays WebP and everything else becomes JPEG.
func ThumbnailFormat(source string) string {
	switch source {
	case FormatGIF:
		return FormatPNG
	case FormatWebP:
		return FormatWebP
	default:
		return FormatJPG
	}
}

// decodeImage decodes a supported image; for animated GIFs only the first frame is used
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// MakeThumbnail scales img to fill a size x size square, cropping the overflow around the center
func MakeThumbnail(img image.Image, size int, format string) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d", size)
	}
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	return encodeImage(thumb, format)
}

func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatWebP:
		err = webp.Encode(&buf, img, webp.Options{Quality: thumbnailWebPQuality})
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case FormatJPG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(thumbnailJPEGQuality))
	default:
		return nil, fmt.Errorf("cannot encode format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
