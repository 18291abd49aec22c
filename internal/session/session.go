package session

import (
	"fmt"

	"github.com/zombor/invoice-review/internal/intake"
)

// Phase is the user-visible stage of an upload cycle
type Phase int

const (
	Idle Phase = iota
	Processing
	Success
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText lets phases appear by name in JSON
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Terminal reports whether the phase ends an upload cycle
func (p Phase) Terminal() bool {
	return p == Success || p == Failed
}

// Result holds what the OCR service returned for a successful upload
type Result struct {
	RawCSV         string
	AnnotatedImage []byte
}

// Session is a copy of the machine's state at one point in time.
// ActiveFile is nil only while Idle, Result is set only in Success and
// ErrorMessage only in Failed.
type Session struct {
	Phase        Phase
	ActiveFile   *intake.File
	Result       *Result
	ErrorMessage string
}

func (s Session) clone() Session {
	if s.Result != nil {
		r := *s.Result
		s.Result = &r
	}
	return s
}
