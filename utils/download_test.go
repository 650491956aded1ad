package utils

import (
	"os"
	"strings"
	"testing"
)

func TestUtils_ShouldBeValidUrl(t *testing.T) {
	ok := IsValidUrl("https://example.com/source.png")
	if !ok {
		t.Errorf("a valid URL should have been accepted")
	}
}

func TestUtils_ShouldRejectLocalPathAsUrl(t *testing.T) {
	if IsValidUrl("./source.png") {
		t.Errorf("a relative local path should not be treated as a URL")
	}
}

func TestUtils_ShouldDetectValidFileType(t *testing.T) {
	f, err := os.CreateTemp("", "vectorize-*.png")
	if err != nil {
		t.Fatalf("could not create temp file: %v", err)
	}
	defer os.Remove(f.Name())

	// A minimal valid PNG signature is enough for http.DetectContentType.
	pngSignature := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	if _, err := f.Write(pngSignature); err != nil {
		t.Fatalf("could not write temp file: %v", err)
	}
	f.Close()

	ctype, err := DetectFileContentType(f.Name())
	if err != nil {
		t.Fatalf("could not detect content type: %v", err)
	}
	if !strings.Contains(ctype, "image") {
		t.Errorf("content type expected to be of type image, got: %v", ctype)
	}
}
