package extractor

import (
	"fmt"
)

// ocrClient is the slice of the tesseract binding the image handler needs.
// The indirection lets tests substitute an engine.
type ocrClient interface {
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	Close() error
}

// ExtractImage runs OCR over an uploaded image. The engine client lives for
// exactly one call: Close runs on every exit path.
func ExtractImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image file")
	}

	client := newOCRClient()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to load image, the file may be corrupted: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("text recognition failed: %w", err)
	}

	text = cleanText(text)

	if text == "" {
		return "", fmt.Errorf("could not read any text from the image")
	}

	return text, nil
}
