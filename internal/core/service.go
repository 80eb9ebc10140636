package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/attendee-import/internal/logging"
)

const (
	// finishedImportRetention is how long a finished import stays queryable.
	finishedImportRetention = 5 * time.Minute

	restorePreviewTimeout = 5 * time.Second
)

// ServiceConfig holds the tunables of the import pipeline.
type ServiceConfig struct {
	MaxFileSize   int64
	BatchSize     int
	SampleRows    int
	MaxConcurrent int
	MaxWaitTime   time.Duration
	CommitTimeout time.Duration
}

// Service runs the two-phase attendee import: Analyze produces a preview
// without side effects, StartCommit persists a confirmed preview.
type Service struct {
	store      Store
	classifier Classifier
	previews   PreviewStore
	committer  *Committer
	limiter    *ImportLimiter
	cfg        ServiceConfig

	mu      sync.RWMutex
	imports map[string]*activeImport
}

type activeImport struct {
	ID         string
	EventID    string
	Analysis   *Analysis
	Progress   ImportProgress
	Result     *ImportOutcome
	Done       chan struct{}
	Listeners  []chan ImportProgress
	ListenerMu sync.Mutex
}

// NewService creates a Service.
func NewService(store Store, classifier Classifier, previews PreviewStore, cfg ServiceConfig) *Service {
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = DefaultSampleRows
	}
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = 10 * time.Minute
	}
	return &Service{
		store:      store,
		classifier: classifier,
		previews:   previews,
		committer:  NewCommitter(store, cfg.BatchSize),
		limiter:    NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		cfg:        cfg,
		imports:    make(map[string]*activeImport),
	}
}

// Analyze decodes the upload, identifies its columns and partitions its rows.
// The resulting Analysis is saved as a preview; no tickets are written.
func (s *Service) Analyze(ctx context.Context, eventID, fileName string, data []byte) (*Analysis, error) {
	if eventID == "" {
		return nil, ErrNoEventSelected
	}
	if s.cfg.MaxFileSize > 0 && int64(len(data)) > s.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(data))
	}

	rows, err := DecodeFile(fileName, data)
	if err != nil {
		return nil, err
	}

	headers := NormalizeHeaders(rows[0])
	dataRows := rows[1:]

	roles, err := ClassifyColumns(ctx, s.classifier, headers, dataRows, s.cfg.SampleRows)
	if err != nil {
		return nil, err
	}

	preview, roles := Reconcile(headers, roles, dataRows)

	digest := sha256.Sum256(data)
	analysis := &Analysis{
		ID:           uuid.NewString(),
		EventID:      eventID,
		FileName:     fileName,
		SourceDigest: hex.EncodeToString(digest[:]),
		Headers:      headers,
		Roles:        roles,
		Preview:      preview,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.previews.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("save preview: %w", err)
	}

	logging.WithFields(ctx, "preview_id", analysis.ID, "event_id", eventID).Info("import analyzed",
		"file", fileName,
		"rows", preview.TotalRows,
		"with_email", preview.WithEmailCount,
		"name_only", preview.NameOnlyCount,
		"skipped", preview.SkippedCount,
	)

	return analysis, nil
}

// Preview returns a stored analysis.
func (s *Service) Preview(ctx context.Context, previewID string) (*Analysis, error) {
	return s.previews.Load(ctx, previewID)
}

// StartCommit begins committing a preview in the background and returns the
// import ID. Use SubscribeProgress or Result to follow it.
//
// Returns ErrImportInProgress when the event already has a running commit
// and ErrTooManyImports when no slot frees up in time. The preview is
// consumed once the commit is admitted and restored if any batch fails, so
// the same preview can be committed again.
func (s *Service) StartCommit(ctx context.Context, previewID string, includeNameOnly bool) (string, error) {
	imp, req, err := s.admit(ctx, previewID, includeNameOnly)
	if err != nil {
		return "", err
	}

	go s.run(imp, req)

	return imp.ID, nil
}

// Commit is the synchronous form of StartCommit.
func (s *Service) Commit(ctx context.Context, previewID string, includeNameOnly bool) (ImportOutcome, error) {
	imp, req, err := s.admit(ctx, previewID, includeNameOnly)
	if err != nil {
		return ImportOutcome{}, err
	}

	s.run(imp, req)

	return *imp.Result, nil
}

func (s *Service) admit(ctx context.Context, previewID string, includeNameOnly bool) (*activeImport, CommitRequest, error) {
	analysis, err := s.previews.Load(ctx, previewID)
	if err != nil {
		return nil, CommitRequest{}, err
	}

	if err := s.limiter.Acquire(ctx, analysis.EventID); err != nil {
		return nil, CommitRequest{}, err
	}

	if err := s.previews.Delete(ctx, previewID); err != nil {
		slog.Warn("failed to delete consumed preview", "preview_id", previewID, "error", err)
	}

	importID := uuid.NewString()
	req := CommitRequest{
		ImportID:     importID,
		EventID:      analysis.EventID,
		PreviewID:    analysis.ID,
		SourceDigest: analysis.SourceDigest,
		Attendees:    FinalizeAttendees(analysis.Preview, includeNameOnly, time.Now()),
		SkippedRows:  analysis.Preview.SkippedRows,
		TotalInFile:  analysis.Preview.TotalRows,
	}

	imp := &activeImport{
		ID:       importID,
		EventID:  analysis.EventID,
		Analysis: analysis,
		Progress: ImportProgress{
			ImportID: importID,
			EventID:  analysis.EventID,
			Phase:    PhaseStarting,
			Total:    len(req.Attendees),
		},
		Done:      make(chan struct{}),
		Listeners: make([]chan ImportProgress, 0),
	}

	s.mu.Lock()
	s.imports[importID] = imp
	s.mu.Unlock()

	return imp, req, nil
}

// run executes the commit and always releases the limiter and finishes
// the import, even on panic. The limiter is released before waiters are
// woken so a caller that saw the result can commit the next preview.
func (s *Service) run(imp *activeImport, req CommitRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CommitTimeout)
	defer cancel()
	log := slog.With("import_id", imp.ID, "event_id", imp.EventID)

	var once sync.Once
	complete := func(outcome ImportOutcome) {
		once.Do(func() {
			if outcome.ErrorCount > 0 {
				s.restorePreview(log, imp.Analysis)
			}
			s.limiter.Release(imp.EventID)
			s.finish(imp, outcome)
		})
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in import", "panic", r)
			complete(FailedOutcome(req, fmt.Errorf("internal error: %v", r)))
		}
	}()

	log.Info("import started", "attendees", len(req.Attendees))

	outcome, err := s.committer.Commit(ctx, req, imp.setProgress)
	if err != nil {
		log.Error("import failed", "error", err)
		outcome = FailedOutcome(req, err)
	}

	log.Info("import complete",
		"success", outcome.SuccessCount,
		"errors", outcome.ErrorCount,
		"duplicates", outcome.DuplicateCount,
		"skipped", outcome.SkippedCount,
		"duration_ms", outcome.DurationMs,
	)

	complete(outcome)
}

// restorePreview saves a consumed preview again after a failed commit.
func (s *Service) restorePreview(log *slog.Logger, a *Analysis) {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), restorePreviewTimeout)
	defer cancel()
	if err := s.previews.Save(ctx, a); err != nil {
		log.Warn("failed to restore preview", "preview_id", a.ID, "error", err)
		return
	}
	log.Info("preview restored for retry", "preview_id", a.ID)
}

func (s *Service) finish(imp *activeImport, outcome ImportOutcome) {
	imp.ListenerMu.Lock()
	imp.Result = &outcome
	imp.Progress.Success = outcome.SuccessCount
	imp.Progress.Errors = outcome.ErrorCount
	imp.Progress.Duplicates = outcome.DuplicateCount
	if imp.Progress.Phase != PhaseComplete {
		imp.Progress.Phase = PhaseFailed
		if len(outcome.Errors) > 0 {
			imp.Progress.Error = outcome.Errors[0].Reason
		}
	}
	for _, ch := range imp.Listeners {
		select {
		case ch <- imp.Progress:
		default:
		}
		close(ch)
	}
	imp.Listeners = nil
	close(imp.Done)
	imp.ListenerMu.Unlock()

	s.cleanup(imp.ID, finishedImportRetention)
}

// SubscribeProgress returns a channel that receives progress updates.
// The channel is closed when the import completes.
func (s *Service) SubscribeProgress(importID string) (<-chan ImportProgress, error) {
	imp, err := s.lookup(importID)
	if err != nil {
		return nil, err
	}

	ch := make(chan ImportProgress, 10)

	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()

	ch <- imp.Progress
	select {
	case <-imp.Done:
		close(ch)
	default:
		imp.Listeners = append(imp.Listeners, ch)
	}

	return ch, nil
}

// Result returns the outcome of an import, blocking until it completes or
// ctx is done.
func (s *Service) Result(ctx context.Context, importID string) (*ImportOutcome, error) {
	imp, err := s.lookup(importID)
	if err != nil {
		return nil, err
	}

	select {
	case <-imp.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return imp.Result, nil
}

// Progress returns the current progress without blocking.
func (s *Service) Progress(importID string) (ImportProgress, error) {
	imp, err := s.lookup(importID)
	if err != nil {
		return ImportProgress{}, err
	}

	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()
	return imp.Progress, nil
}

// WaitForImports blocks until every running commit has finished.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ActiveImports returns the number of running commits.
func (s *Service) ActiveImports() int {
	return s.limiter.ActiveCount()
}

func (s *Service) lookup(importID string) (*activeImport, error) {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}
	return imp, nil
}

// setProgress records a progress update and fans it out to listeners.
func (imp *activeImport) setProgress(p ImportProgress) {
	imp.ListenerMu.Lock()
	imp.Progress = p
	imp.ListenerMu.Unlock()

	imp.notifyProgress()
}

// notifyProgress sends the current progress to all listeners.
func (imp *activeImport) notifyProgress() {
	imp.ListenerMu.Lock()
	defer imp.ListenerMu.Unlock()

	for _, ch := range imp.Listeners {
		select {
		case ch <- imp.Progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

// cleanup removes the import from tracking after a delay.
func (s *Service) cleanup(importID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.imports, importID)
		s.mu.Unlock()
	})
}
