package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/zombor/invoice-review/internal/export"
	"github.com/zombor/invoice-review/internal/extraction"
	"github.com/zombor/invoice-review/internal/intake"
	"github.com/zombor/invoice-review/internal/submit"
)

var (
	// ErrUploadInFlight is returned by StartUpload while a call is Processing
	ErrUploadInFlight = errors.New("an upload is already in progress")
	// ErrNoResult is returned when a result is requested outside Success
	ErrNoResult = errors.New("no extraction result available")
)

// IDGenerator generates attempt IDs for log correlation
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Outcome is the one-shot notification sent when an upload attempt completes
type Outcome struct {
	Seq       uint64
	AttemptID string
	// Stale is set when a newer StartUpload or a Reset superseded this attempt;
	// its result was discarded and Session is the state that replaced it.
	Stale   bool
	Session Session
	Err     error
}

// Machine owns the single live Session and is its only writer
type Machine struct {
	submitter   submit.Submitter
	idGenerator IDGenerator

	mu    sync.Mutex
	state Session
	seq   uint64
}

// NewMachine creates a Machine in Idle
func NewMachine(submitter submit.Submitter) *Machine {
	return NewMachineWithDeps(submitter, uuidGenerator{})
}

// NewMachineWithDeps creates a Machine with a custom ID generator for testing
func NewMachineWithDeps(submitter submit.Submitter, idGenerator IDGenerator) *Machine {
	return &Machine{
		submitter:   submitter,
		idGenerator: idGenerator,
	}
}

// Snapshot returns a copy of the current session
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// StartUpload moves to Processing with file as the active file and submits
// it in the background. A terminal session is reset first. The returned
// channel receives exactly one Outcome and is then closed. The submission
// runs to completion even if ctx is cancelled.
func (m *Machine) StartUpload(ctx context.Context, file *intake.File) (<-chan Outcome, error) {
	m.mu.Lock()
	if m.state.Phase == Processing {
		m.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	m.seq++
	seq := m.seq
	m.state = Session{Phase: Processing, ActiveFile: file}
	m.mu.Unlock()

	attemptID := m.idGenerator.Generate()
	logger := slog.With("attempt_id", attemptID, "seq", seq, "filename", file.Name)
	logger.Info("Upload started", "content_type", file.ContentType, "size", file.SizeLabel())

	done := make(chan Outcome, 1)
	go func() {
		defer close(done)
		resp, err := m.submitter.Submit(context.WithoutCancel(ctx), file)
		done <- m.complete(logger, seq, attemptID, resp, err)
	}()
	return done, nil
}

// complete applies a submitter result unless a newer attempt or a reset
// has happened since it started
func (m *Machine) complete(logger *slog.Logger, seq uint64, attemptID string, resp *submit.Response, err error) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome := Outcome{Seq: seq, AttemptID: attemptID, Err: err}
	if seq != m.seq || m.state.Phase != Processing {
		logger.Debug("Discarding stale upload result", "current_seq", m.seq)
		outcome.Stale = true
		outcome.Session = m.state.clone()
		return outcome
	}

	if err != nil {
		kind := "local"
		var submitErr *submit.Error
		if errors.As(err, &submitErr) {
			kind = submitErr.Kind.String()
		}
		logger.Error("Upload failed", "kind", kind, "error", err)
		m.state.Phase = Failed
		m.state.Result = nil
		m.state.ErrorMessage = err.Error()
	} else {
		logger.Info("Upload succeeded", "csv_bytes", len(resp.RawCSV), "image_bytes", len(resp.AnnotatedImage))
		m.state.Phase = Success
		m.state.Result = &Result{RawCSV: resp.RawCSV, AnnotatedImage: resp.AnnotatedImage}
		m.state.ErrorMessage = ""
	}
	outcome.Session = m.state.clone()
	return outcome
}

// Reset returns to Idle from any phase. An upload still in flight is
// abandoned: its result will be discarded when it arrives.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.state = Session{Phase: Idle}
}

// Fields returns the normalized fields of the current result, or an empty
// list outside Success
func (m *Machine) Fields() []extraction.Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != Success {
		return []extraction.Field{}
	}
	return extraction.Normalize(m.state.Result.RawCSV)
}

// Export packages the raw CSV of the current result for download
func (m *Machine) Export() (export.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != Success {
		return export.Artifact{}, ErrNoResult
	}
	return export.CSV(m.state.Result.RawCSV, m.state.ActiveFile.Name), nil
}

// AnnotatedImage returns the annotated JPEG of the current result
func (m *Machine) AnnotatedImage() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != Success {
		return nil, ErrNoResult
	}
	return m.state.Result.AnnotatedImage, nil
}
