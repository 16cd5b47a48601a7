package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Scanner interface with a local Tesseract install.
// It only produces raw text; every field comes from regex extraction.
type Tesseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseract creates a Tesseract scanner for the given traineddata languages
func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"por"}
	}
	return &Tesseract{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

// Scan runs Tesseract on the prepared PNG.
// gosseract calls are not interruptible, so ctx is only checked before starting.
func (t *Tesseract) Scan(ctx context.Context, imageData []byte, contentType string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return nil, err
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("no text found in document")
	}
	return &Document{RawText: text}, nil
}

// Close is a no-op; a client is created per scan
func (t *Tesseract) Close() error {
	return nil
}
