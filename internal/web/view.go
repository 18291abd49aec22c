package web

import (
	"github.com/zombor/invoice-review/internal/export"
	"github.com/zombor/invoice-review/internal/extraction"
	"github.com/zombor/invoice-review/internal/review"
	"github.com/zombor/invoice-review/internal/session"
)

type fileView struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	SizeLabel   string `json:"size_label"`
}

type fieldView struct {
	extraction.Field
	Status string      `json:"status"`
	Hint   review.Hint `json:"hint"`
}

// sessionView is the JSON shape of the session served to the page
type sessionView struct {
	Phase      session.Phase `json:"phase"`
	File       *fileView     `json:"file"`
	Fields     []fieldView   `json:"fields"`
	RawCSV     string        `json:"raw_csv,omitempty"`
	ExportName string        `json:"export_name,omitempty"`
	Error      string        `json:"error,omitempty"`
}

func newSessionView(s session.Session) sessionView {
	v := sessionView{
		Phase:  s.Phase,
		Fields: []fieldView{},
		Error:  s.ErrorMessage,
	}
	if s.ActiveFile != nil {
		v.File = &fileView{
			Name:        s.ActiveFile.Name,
			ContentType: s.ActiveFile.ContentType,
			Size:        s.ActiveFile.Size(),
			SizeLabel:   s.ActiveFile.SizeLabel(),
		}
	}
	if s.Phase == session.Success && s.Result != nil {
		v.RawCSV = s.Result.RawCSV
		v.ExportName = export.FileName(s.ActiveFile.Name)
		for _, f := range extraction.Normalize(s.Result.RawCSV) {
			v.Fields = append(v.Fields, fieldView{
				Field:  f,
				Status: review.Status(f),
				Hint:   review.HintFor(f.Label),
			})
		}
	}
	return v
}
