// Package ocr recovers text from captured page regions when structured page
// inspection comes up empty, e.g. a payment address rendered only as an image.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// ErrNoText signals that recognition completed but produced no usable text.
var ErrNoText = errors.New("ocr: no text recognized")

// defaultUpscale is the fixed upsampling factor applied before recognition.
// Screenshots of small page regions are too low-resolution for tesseract
// at native size.
const defaultUpscale = 3

// Extractor runs tesseract over upsampled PNG captures. The zero value is
// not usable; construct with NewExtractor.
type Extractor struct {
	upscale int
}

// NewExtractor creates an extractor with the fixed upsampling factor.
func NewExtractor() *Extractor {
	return &Extractor{upscale: defaultUpscale}
}

// Recognize upsamples the PNG capture, writes it to a temporary file, runs
// recognition, and returns the trimmed text. The temporary artifact is
// removed on every path.
func (e *Extractor) Recognize(ctx context.Context, capture []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}

	upsampled, err := e.Upsample(capture)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("ocr: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(upsampled); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ocr: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ocr: close temp file: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(tmp.Name()); err != nil {
		return "", fmt.Errorf("ocr: set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Upsample decodes a PNG capture and scales it by the fixed factor using
// Lanczos resampling.
func (e *Extractor) Upsample(capture []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(capture))
	if err != nil {
		return nil, fmt.Errorf("ocr: decode capture: %w", err)
	}

	bounds := img.Bounds()
	scaled := imaging.Resize(img, bounds.Dx()*e.upscale, bounds.Dy()*e.upscale, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("ocr: encode upsampled capture: %w", err)
	}
	return buf.Bytes(), nil
}
