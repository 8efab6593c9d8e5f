//go:build cgo

package extractor

import (
	"github.com/otiai10/gosseract/v2"
)

var newOCRClient = func() ocrClient {
	return gosseract.NewClient()
}
