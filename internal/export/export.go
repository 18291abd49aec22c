package export

import "regexp"

const (
	// Suffix is appended to the original file's base name
	Suffix = "_extracted_data"
	// ContentType is the MIME type of exported artifacts
	ContentType = "text/csv"
)

// extension matches a trailing ".ext" that contains no further dots or slashes
var extension = regexp.MustCompile(`\.[^/.]+$`)

// Artifact is a named, downloadable blob
type Artifact struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// FileName derives the export name from the uploaded file's name
func FileName(originalFileName string) string {
	return extension.ReplaceAllString(originalFileName, "") + Suffix + ".csv"
}

// CSV packages the service's raw CSV text for download. The text is exported
// byte for byte; the normalized field list is never substituted for it.
func CSV(rawCSV string, originalFileName string) Artifact {
	return Artifact{
		Name:        FileName(originalFileName),
		ContentType: ContentType,
		Data:        []byte(rawCSV),
	}
}
