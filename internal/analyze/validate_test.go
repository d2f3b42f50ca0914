package analyze

import (
	"bytes"
	"errors"
	"testing"
)

func jpegBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}

// TestValidateAcceptsKnownSignatures verifies magic-byte detection for the
// allowed image types.
func TestValidateAcceptsKnownSignatures(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpegBytes(64), "image/jpeg"},
		{"png", append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, make([]byte, 32)...), "image/png"},
		{"gif", append([]byte("GIF89a"), make([]byte, 32)...), "image/gif"},
		{"bmp", append([]byte("BM"), make([]byte, 32)...), "image/bmp"},
		{"tiff-le", append([]byte{0x49, 0x49, 0x2A, 0x00}, make([]byte, 32)...), "image/tiff"},
		{"dicom", append(append(bytes.Repeat([]byte{0}, 128), []byte("DICM")...), make([]byte, 32)...), "application/dicom"},
	}

	for _, tc := range cases {
		mime, err := validate(Upload{Filename: tc.name, Data: tc.data})
		if err != nil {
			t.Fatalf("%s: validate error = %v", tc.name, err)
		}
		if mime != tc.want {
			t.Fatalf("%s: mime = %q, want %q", tc.name, mime, tc.want)
		}
	}
}

// TestValidateRejectsBadInput covers each precondition failure.
func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name   string
		upload Upload
		want   error
	}{
		{"no file", Upload{}, ErrNoFile},
		{"empty", Upload{Filename: "scan.jpg"}, ErrEmptyFile},
		{"oversized", Upload{Filename: "scan.jpg", Data: jpegBytes(MaxFileSize + 1)}, ErrFileTooLarge},
		{"unknown type", Upload{Filename: "notes.txt", Data: []byte("plain text, not an image")}, ErrUnsupportedType},
	}

	for _, tc := range cases {
		_, err := validate(tc.upload)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
		if !IsValidationError(err) {
			t.Fatalf("%s: IsValidationError = false", tc.name)
		}
	}
}

// TestValidateSizeBoundary verifies exactly 50MB is still accepted.
func TestValidateSizeBoundary(t *testing.T) {
	if _, err := validate(Upload{Filename: "scan.jpg", Data: jpegBytes(MaxFileSize)}); err != nil {
		t.Fatalf("validate at boundary: %v", err)
	}
}
