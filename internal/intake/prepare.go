package intake

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// Prepare returns a copy of f the OCR service can decode. HEIC/HEIF photos
// and PDFs are converted to PNG; every other image passes through untouched.
// The name is kept so the export filename still follows the user's file.
func Prepare(f *File) (*File, error) {
	switch {
	case f.ContentType == "application/pdf":
		data, err := pdfToPNG(f.Data)
		if err != nil {
			return nil, fmt.Errorf("converting PDF to image: %w", err)
		}
		return &File{Name: f.Name, ContentType: "image/png", Data: data}, nil
	case isHEICFormat(f.Data) || isHEICMimeType(f.ContentType):
		data, err := heicToPNG(f.Data)
		if err != nil {
			return nil, fmt.Errorf("converting image to PNG: %w", err)
		}
		return &File{Name: f.Name, ContentType: "image/png", Data: data}, nil
	}
	return f, nil
}

// pdfToPNG renders the first page of a PDF (invoices are usually one page)
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

func heicToPNG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
