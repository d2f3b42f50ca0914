package analyze

import (
	"bytes"
	"fmt"
)

// MaxFileSize is the upper bound for uploaded images (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// Upload is one in-memory file handed to Analyze.
type Upload struct {
	Filename string
	Data     []byte
}

// imageType pairs a mime type with its magic-byte signature. Detection runs
// on content, never on the filename extension.
type imageType struct {
	MIMEType string
	Magic    []byte
	Offset   int
}

var imageTypes = []imageType{
	{MIMEType: "image/jpeg", Magic: []byte{0xFF, 0xD8, 0xFF}},
	{MIMEType: "image/png", Magic: []byte{0x89, 0x50, 0x4E, 0x47}},
	{MIMEType: "image/gif", Magic: []byte{0x47, 0x49, 0x46, 0x38}},
	{MIMEType: "image/bmp", Magic: []byte{0x42, 0x4D}},
	{MIMEType: "image/tiff", Magic: []byte{0x49, 0x49, 0x2A, 0x00}},
	{MIMEType: "image/tiff", Magic: []byte{0x4D, 0x4D, 0x00, 0x2A}},
	// DICOM: "DICM" after the 128-byte preamble.
	{MIMEType: "application/dicom", Magic: []byte{0x44, 0x49, 0x43, 0x4D}, Offset: 128},
}

// ValidateUpload checks the upload preconditions and returns the detected
// mime type. The UI calls this at submission time so bad input is rejected
// before a request is ever created.
func ValidateUpload(upload Upload) (string, error) {
	return validate(upload)
}

// validate checks the upload preconditions and returns the detected mime
// type. Failures wrap the package's validation sentinels.
func validate(upload Upload) (string, error) {
	if upload.Filename == "" && len(upload.Data) == 0 {
		return "", ErrNoFile
	}
	if len(upload.Data) == 0 {
		return "", fmt.Errorf("%q: %w", upload.Filename, ErrEmptyFile)
	}
	if int64(len(upload.Data)) > MaxFileSize {
		return "", fmt.Errorf("%q is %d bytes (max %d): %w",
			upload.Filename, len(upload.Data), int64(MaxFileSize), ErrFileTooLarge)
	}

	mimeType, ok := detectMime(upload.Data)
	if !ok {
		return "", fmt.Errorf("%q: %w", upload.Filename, ErrUnsupportedType)
	}
	return mimeType, nil
}

// detectMime matches content against the known image signatures.
func detectMime(data []byte) (string, bool) {
	for _, it := range imageTypes {
		if len(data) < it.Offset+len(it.Magic) {
			continue
		}
		if bytes.HasPrefix(data[it.Offset:], it.Magic) {
			return it.MIMEType, true
		}
	}
	return "", false
}
