package intake

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned when a file is not an accepted invoice image
var ErrUnsupportedType = errors.New("unsupported file type")

// File is a single invoice blob selected by the user
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the blob size in bytes
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// SizeLabel formats the size the way the upload surface displays it
func (f *File) SizeLabel() string {
	return fmt.Sprintf("%.2f MB", float64(f.Size())/1024/1024)
}

// pickerExtensions is the file picker allow-list
var pickerExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".webp": "image/webp",
	// converted to PNG by Prepare
	".heic": "image/heic",
	".heif": "image/heif",
	".pdf":  "application/pdf",
}

// AcceptedExtensions lists the extensions the file picker offers, in display order
func AcceptedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".heic", ".heif", ".pdf"}
}

// AcceptsName reports whether the file picker accepts a file with this name
func AcceptsName(name string) bool {
	_, ok := pickerExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// AcceptsContentType reports whether the drop surface accepts a declared MIME type
func AcceptsContentType(contentType string) bool {
	contentType = normalizeMIME(contentType)
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}

// ContentTypeFor guesses a MIME type from a file name
func ContentTypeFor(name string) string {
	if ct, ok := pickerExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// FromPath reads a file chosen through the picker
func FromPath(path string) (*File, error) {
	name := filepath.Base(path)
	if !AcceptsName(name) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedType, name, strings.Join(AcceptedExtensions(), ", "))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	return &File{
		Name:        name,
		ContentType: ContentTypeFor(name),
		Data:        data,
	}, nil
}

// FromUpload reads a file dropped onto the upload surface
func FromUpload(header *multipart.FileHeader) (*File, error) {
	contentType := normalizeMIME(header.Header.Get("Content-Type"))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(header.Filename)
	}
	if !AcceptsContentType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	return &File{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func normalizeMIME(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType
}
