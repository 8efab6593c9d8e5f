//go:build !cgo

package extractor

import (
	"errors"
)

// gosseract binds libtesseract through cgo, so a cgo-disabled binary cannot
// carry the real engine; acquiring a client still succeeds and every use
// reports the configuration error.
var errOCRUnavailable = errors.New("OCR engine unavailable: binary built without cgo (gosseract requires CGO_ENABLED=1 and libtesseract)")

type unavailableOCR struct{}

func (unavailableOCR) SetImageFromBytes(data []byte) error { return errOCRUnavailable }
func (unavailableOCR) Text() (string, error)               { return "", errOCRUnavailable }
func (unavailableOCR) Close() error                        { return nil }

var newOCRClient = func() ocrClient {
	return unavailableOCR{}
}
