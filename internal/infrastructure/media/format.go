package media

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"net/url"
	"path"
	"strings"

	// decoders used for format sniffing and thumbnails
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Supported image formats
const (
	FormatJPG  = "jpg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWebP = "webp"
)

// DefaultFormat is assumed when nothing else identifies an image
const DefaultFormat = FormatJPG

var contentTypes = map[string]string{
	FormatJPG:  "image/jpeg",
	FormatPNG:  "image/png",
	FormatGIF:  "image/gif",
	FormatWebP: "image/webp",
}

// ContentType returns the MIME type of a supported format
func ContentType(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsSupportedFormat reports whether format is one of jpg, png, gif and webp
func IsSupportedFormat(format string) bool {
	_, ok := contentTypes[format]
	return ok
}

// NormalizeFormat lowercases a format name and maps jpeg to jpg
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpeg" {
		return FormatJPG
	}
	return f
}

// DetectFormat identifies an image by, in order: its decoded header, the declared
// content type, the extension of the source URL and finally DefaultFormat.
// Formats outside the supported set are rejected.
func DetectFormat(data []byte, contentType, sourceURL string) (string, error) {
	format := sniffFormat(data)
	if format == "" {
		format = formatFromContentType(contentType)
	}
	if format == "" {
		format = formatFromURL(sourceURL)
	}
	if format == "" {
		format = DefaultFormat
	}

	format = NormalizeFormat(format)
	if !IsSupportedFormat(format) {
		return "", fmt.Errorf("unsupported image format %q", format)
	}
	return format, nil
}

func sniffFormat(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return format
}

func formatFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	subtype, ok := strings.CutPrefix(mediaType, "image/")
	if !ok {
		return ""
	}
	return subtype
}

func formatFromURL(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
}
