package extractor

import (
	"errors"
	"strings"
	"testing"
)

type fakeOCR struct {
	text    string
	setErr  error
	textErr error
	closed  bool
}

func (f *fakeOCR) SetImageFromBytes(data []byte) error { return f.setErr }
func (f *fakeOCR) Text() (string, error)               { return f.text, f.textErr }
func (f *fakeOCR) Close() error                        { f.closed = true; return nil }

func withFakeOCR(t *testing.T, fake *fakeOCR) {
	t.Helper()
	orig := newOCRClient
	newOCRClient = func() ocrClient { return fake }
	t.Cleanup(func() { newOCRClient = orig })
}

func TestExtractImage(t *testing.T) {
	fake := &fakeOCR{text: "  Handwritten   notes \n about rivers \n"}
	withFakeOCR(t, fake)

	text, err := ExtractImage([]byte{0x89, 'P', 'N', 'G'})
	if err != nil {
		t.Fatalf("ExtractImage returned error: %v", err)
	}
	if !strings.Contains(text, "about rivers") {
		t.Errorf("ExtractImage = %q, expected recognized text", text)
	}
	if !fake.closed {
		t.Error("OCR client was not closed after a successful call")
	}
}

func TestExtractImageNoText(t *testing.T) {
	// A solid-color image recognizes as whitespace.
	fake := &fakeOCR{text: "  \n  "}
	withFakeOCR(t, fake)

	_, err := ExtractImage([]byte{0x89, 'P', 'N', 'G'})
	if err == nil {
		t.Fatal("ExtractImage expected error for blank recognition, got nil")
	}
	if !fake.closed {
		t.Error("OCR client was not closed after a blank recognition")
	}
}

func TestExtractImageRecognitionError(t *testing.T) {
	fake := &fakeOCR{textErr: errors.New("engine crashed")}
	withFakeOCR(t, fake)

	_, err := ExtractImage([]byte{0x89, 'P', 'N', 'G'})
	if err == nil {
		t.Fatal("ExtractImage expected error, got nil")
	}
	if !fake.closed {
		t.Error("OCR client was not closed after a recognition error")
	}
}

func TestExtractImageCorruptFile(t *testing.T) {
	fake := &fakeOCR{setErr: errors.New("unsupported image")}
	withFakeOCR(t, fake)

	_, err := ExtractImage([]byte("not an image"))
	if err == nil {
		t.Fatal("ExtractImage expected error, got nil")
	}
	if !strings.Contains(err.Error(), "corrupted") {
		t.Errorf("ExtractImage error = %q, expected corrupt-file wording", err)
	}
	if !fake.closed {
		t.Error("OCR client was not closed after a load error")
	}
}

func TestExtractImageEmptyData(t *testing.T) {
	called := false
	orig := newOCRClient
	newOCRClient = func() ocrClient {
		called = true
		return &fakeOCR{}
	}
	t.Cleanup(func() { newOCRClient = orig })

	if _, err := ExtractImage(nil); err == nil {
		t.Fatal("ExtractImage(nil) expected error, got nil")
	}
	if called {
		t.Error("no OCR client should be acquired for empty input")
	}
}
