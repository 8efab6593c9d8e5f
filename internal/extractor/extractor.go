package extractor

import (
	"errors"
	"fmt"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

// ErrUnsupportedFormat is returned for a format tag with no handler. The
// validator keeps this unreachable for real uploads.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ExtractionError wraps any failure to turn an upload into text.
type ExtractionError struct {
	Format models.DocumentFormat
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s extraction failed: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extract dispatches to the handler for the given format tag. Exactly one
// handler exists per format; every failure comes back as *ExtractionError.
func Extract(format models.DocumentFormat, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch format {
	case models.FormatTXT:
		text, err = ExtractTXT(data)
	case models.FormatRTF:
		text, err = ExtractRTF(data)
	case models.FormatPDF:
		text, err = ExtractPDF(data)
	case models.FormatDOCX:
		text, err = ExtractDOCX(data)
	case models.FormatJPG, models.FormatJPEG, models.FormatPNG:
		text, err = ExtractImage(data)
	default:
		err = ErrUnsupportedFormat
	}

	if err != nil {
		return "", &ExtractionError{Format: format, Err: err}
	}

	return text, nil
}
