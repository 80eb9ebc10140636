package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/attendee-import/internal/core"
)

// Multipart parts beyond this are spooled to disk by net/http.
const multipartMemory = 32 << 20

var errNoFile = errors.New("no file provided")

type commitRequest struct {
	IncludeNameOnly bool `json:"includeNameOnly"`
}

type commitResponse struct {
	ImportID string `json:"import_id"`
}

// handleAnalyze reads an uploaded attendee file and returns its preview.
// Nothing is written to the ticket store.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		respondError(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	analysis, err := s.service.Analyze(r.Context(), eventID, header.Filename, data)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleGetPreview(w http.ResponseWriter, r *http.Request) {
	previewID, err := uuidParam(r, "previewID", core.ErrPreviewNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	analysis, err := s.service.Preview(r.Context(), previewID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// handleCommit confirms a preview. The commit runs in the background; the
// response carries the import id to follow it with.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	previewID, err := uuidParam(r, "previewID", core.ErrPreviewNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req commitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}

	importID, err := s.service.StartCommit(r.Context(), previewID, req.IncludeNameOnly)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, commitResponse{ImportID: importID})
}

// handleProgress streams commit progress as Server-Sent Events. The event
// id is the progress percentage; a reconnecting client passes the last one
// it saw (Last-Event-ID header or lastEventId query) to skip repeats.
// The stream ends with a "complete" event carrying the outcome.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	importID, err := uuidParam(r, "importID", core.ErrImportNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resumeFrom := -1
	resume := r.Header.Get("Last-Event-ID")
	if resume == "" {
		resume = r.URL.Query().Get("lastEventId")
	}
	if n, err := strconv.Atoi(resume); err == nil {
		resumeFrom = n
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming not supported"))
		return
	}

	progressCh, err := s.service.SubscribeProgress(importID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				s.writeComplete(w, r, importID)
				flusher.Flush()
				return
			}

			percent := progress.Percent()
			if percent <= resumeFrom && progress.Phase != core.PhaseComplete {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeComplete(w http.ResponseWriter, r *http.Request, importID string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	outcome, err := s.service.Result(ctx, importID)
	if err != nil {
		fmt.Fprint(w, "event: complete\ndata: {}\n\n")
		return
	}
	data, _ := json.Marshal(outcome)
	fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
}

// handleImportStatus returns the current progress without waiting.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	importID, err := uuidParam(r, "importID", core.ErrImportNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	progress, err := s.service.Progress(importID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, progress)
}

// handleResult blocks until the import finishes and returns its outcome.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	importID, err := uuidParam(r, "importID", core.ErrImportNotFound)
	if err != nil {
		respondError(w, r, err)
		return
	}

	outcome, err := s.service.Result(r.Context(), importID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"active_imports": s.service.ActiveImports(),
	}

	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			body["status"] = "unavailable"
			body["error"] = core.MapError(err).Message
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}

	writeJSON(w, http.StatusOK, body)
}
