package review

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Preview bounds
const (
	PreviewWidth  = 800
	PreviewHeight = 600
)

// Preview decodes the annotated image and fits it inside maxWidth x maxHeight,
// re-encoded as JPEG. Images already inside the box are only re-encoded.
func Preview(annotated []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(annotated), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding annotated image: %w", err)
	}

	fitted := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encoding preview: %w", err)
	}
	return buf.Bytes(), nil
}
