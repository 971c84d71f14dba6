package validator

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/magcho/hedgedoc/internal/domain"
)

// allowedMimeTypes is the fixed allow-list of content types uploads may have.
// Detection happens on the bytes only; client-declared types and filename
// extensions are never consulted.
var allowedMimeTypes = map[string]struct{}{
	"image/apng": {},
	// Sniffers label animated PNG with the vendor tree name rather than the
	// registered image/apng.
	"image/vnd.mozilla.apng": {},
	"image/bmp":              {},
	"image/gif":              {},
	"image/heif":             {},
	"image/heic":             {},
	"image/jpeg":             {},
	"image/png":              {},
	"image/svg+xml":          {},
	"image/tiff":             {},
	"image/webp":             {},
}

// unidentified is what the sniffer falls back to when no signature matched.
const unidentified = "application/octet-stream"

// ContentValidator classifies raw upload bytes by magic-number sniffing.
type ContentValidator struct{}

func NewContentValidator() *ContentValidator {
	return &ContentValidator{}
}

// Classify returns the detected MIME type of content, or
// domain.ErrUnidentifiableContent when no type could be determined and
// domain.ErrUnsupportedMediaType when the detected type is recognized but not
// on the allow-list.
func (v *ContentValidator) Classify(content []byte) (string, error) {
	if len(content) == 0 {
		return "", domain.ErrUnidentifiableContent
	}

	mtype := mimetype.Detect(content)
	// mimetype reports parameters for some text types ("; charset=utf-8");
	// the allow-list works on the bare type.
	detected, _, _ := strings.Cut(mtype.String(), ";")
	detected = strings.TrimSpace(detected)

	if detected == unidentified {
		return "", domain.ErrUnidentifiableContent
	}
	if _, ok := allowedMimeTypes[detected]; !ok {
		return "", domain.ErrUnsupportedMediaType
	}
	return detected, nil
}

// Extension returns the canonical file extension for a detected MIME type,
// including the leading dot, or "" if none is known.
func (v *ContentValidator) Extension(content []byte) string {
	return mimetype.Detect(content).Extension()
}
