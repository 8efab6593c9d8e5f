package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quizforge/quiz-generator-api/internal/models"
)

// MaxFileSize is the hard upload ceiling at the service boundary. Front-ends
// may pre-flight tighter limits; nothing larger is accepted here.
const MaxFileSize = 10 << 20 // 10 MiB

var allowedExtensions = []string{"pdf", "docx", "txt", "rtf", "jpg", "jpeg", "png"}

var formatsByExt = map[string]models.DocumentFormat{
	"pdf":  models.FormatPDF,
	"docx": models.FormatDOCX,
	"txt":  models.FormatTXT,
	"rtf":  models.FormatRTF,
	"jpg":  models.FormatJPG,
	"jpeg": models.FormatJPEG,
	"png":  models.FormatPNG,
}

// ValidationError reports an upload rejected before any content was touched.
type ValidationError struct {
	Filename string
	Ext      string
	Size     int64
	Reason   string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ValidateUpload checks the declared filename and size only; it never
// inspects content. A lying extension passes here and surfaces later as an
// extraction failure.
func ValidateUpload(filename string, size int64) (models.DocumentFormat, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	format, ok := formatsByExt[ext]
	if !ok {
		return "", &ValidationError{
			Filename: filename,
			Ext:      ext,
			Size:     size,
			Reason:   fmt.Sprintf("unsupported file type %q: allowed types are %s", ext, strings.Join(allowedExtensions, ", ")),
		}
	}

	if size > MaxFileSize {
		return "", &ValidationError{
			Filename: filename,
			Ext:      ext,
			Size:     size,
			Reason:   fmt.Sprintf("file size %d exceeds the %d MiB limit", size, MaxFileSize>>20),
		}
	}

	return format, nil
}
