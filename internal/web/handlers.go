package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/zombor/invoice-review/internal/intake"
	"github.com/zombor/invoice-review/internal/review"
	"github.com/zombor/invoice-review/internal/session"
)

// maxUploadSize bounds the multipart body (high-resolution phone photos)
const maxUploadSize = int64(50 << 20)

// jsonError writes {"error": message} with the given status
func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func writeSession(w http.ResponseWriter, code int, s session.Session) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(newSessionView(s)); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the review page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}

// handleGetSession returns the current session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeSession(w, http.StatusOK, s.machine.Snapshot())
}

// handleUpload starts an upload cycle for the dropped file. With ?wait=true
// the response is held until the cycle completes.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	_, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}

	file, err := intake.FromUpload(header)
	if err != nil {
		if errors.Is(err, intake.ErrUnsupportedType) {
			jsonError(w, "Please upload an image file (JPG, PNG, GIF, BMP, TIFF, WebP).", http.StatusUnsupportedMediaType)
			return
		}
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	file, err = intake.Prepare(file)
	if err != nil {
		slog.Error("Error preparing image", "error", err, "filename", header.Filename)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	done, err := s.machine.StartUpload(r.Context(), file)
	if err != nil {
		if errors.Is(err, session.ErrUploadInFlight) {
			jsonError(w, "An invoice is already being processed.", http.StatusConflict)
			return
		}
		slog.Error("Error starting upload", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		writeSession(w, http.StatusAccepted, s.machine.Snapshot())
		return
	}

	select {
	case outcome := <-done:
		writeSession(w, http.StatusOK, outcome.Session)
	case <-r.Context().Done():
		// the upload keeps running; the page can poll /api/session
	}
}

// handleReset returns the session to Idle
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.machine.Reset()
	writeSession(w, http.StatusOK, s.machine.Snapshot())
}

// handleImage returns the annotated image
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, err := s.machine.AnnotatedImage()
	if err != nil {
		jsonError(w, "No result available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(data)
}

// handlePreview returns a downscaled annotated image
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	data, err := s.machine.AnnotatedImage()
	if err != nil {
		jsonError(w, "No result available", http.StatusNotFound)
		return
	}

	preview, err := review.Preview(data, review.PreviewWidth, review.PreviewHeight)
	if err != nil {
		slog.Error("Error building preview", "error", err)
		jsonError(w, "Annotated image could not be decoded", http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(preview)
}

// handleExport sends the raw CSV as a download
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.machine.Export()
	if err != nil {
		jsonError(w, "No result available", http.StatusNotFound)
		return
	}

	if s.archive != nil {
		if location, err := s.archive.Save(artifact); err != nil {
			slog.Warn("Failed to archive export", "name", artifact.Name, "error", err)
		} else {
			slog.Info("Export archived", "name", artifact.Name, "location", location)
		}
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": artifact.Name,
	}))
	w.Write(artifact.Data)
}
