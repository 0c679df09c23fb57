package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"docviewer/internal/model"
	"docviewer/internal/repository"
	"docviewer/internal/scanner"
	"docviewer/internal/storage"
	"docviewer/internal/viewing"
)

var (
	ErrDocumentRead    = errors.New("read document")
	ErrSessionCreate   = errors.New("create viewing session")
	ErrSessionNotFound = errors.New("viewing session not found")
	ErrIDRequired      = errors.New("id is required")
)

var tracer = otel.Tracer("docviewer/internal/service")

// ContentScanner checks document text before it is handed to the viewing service.
type ContentScanner interface {
	Scan(text string) scanner.Result
}

// ViewingService defines the use cases for viewing documents.
type ViewingService interface {
	// OpenDefault creates a session for the configured default document.
	// The default document is trusted and is not scanned.
	OpenDefault(ctx context.Context) (*model.ViewingSession, error)

	// OpenDocument reads and scans filename, then creates a session for it.
	// A scan failure is returned as *scanner.Violation and no session is created.
	OpenDocument(ctx context.Context, filename string) (*model.ViewingSession, error)

	// Session returns the recorded state of a session.
	Session(ctx context.Context, id string) (*model.ViewingSession, error)

	// Documents lists the document store.
	Documents(ctx context.Context) ([]model.Document, error)

	// Wait blocks until background uploads scheduled so far have finished.
	Wait(ctx context.Context) error
}

// Options tunes a ViewingService.
type Options struct {
	DefaultDocument      string
	UploadTimeout        time.Duration
	MaxConcurrentUploads int
	Logger               zerolog.Logger
	Metrics              *Metrics
}

// viewingService is a concrete implementation of ViewingService.
type viewingService struct {
	store      storage.DocumentStore
	scanner    ContentScanner
	client     viewing.Client
	sessions   repository.SessionRepository
	defaultDoc string
	log        zerolog.Logger
	metrics    *Metrics
	uploads    *uploader
	now        func() time.Time
}

// NewViewingService constructs a new ViewingService.
// A nil sessions repository disables the ledger.
func NewViewingService(
	store storage.DocumentStore,
	scan ContentScanner,
	client viewing.Client,
	sessions repository.SessionRepository,
	opts Options,
) ViewingService {
	if sessions == nil {
		sessions = repository.NopSessionRepository{}
	}
	if opts.DefaultDocument == "" {
		opts.DefaultDocument = "example.pdf"
	}
	if opts.MaxConcurrentUploads <= 0 {
		opts.MaxConcurrentUploads = 8
	}
	log := opts.Logger.With().Str("component", "viewing").Logger()

	return &viewingService{
		store:      store,
		scanner:    scan,
		client:     client,
		sessions:   sessions,
		defaultDoc: opts.DefaultDocument,
		log:        log,
		metrics:    opts.Metrics,
		uploads: &uploader{
			store:    store,
			client:   client,
			sessions: sessions,
			slots:    semaphore.NewWeighted(int64(opts.MaxConcurrentUploads)),
			timeout:  opts.UploadTimeout,
			log:      log,
			metrics:  opts.Metrics,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *viewingService) OpenDefault(ctx context.Context) (*model.ViewingSession, error) {
	ctx, span := tracer.Start(ctx, "ViewingService.OpenDefault", trace.WithAttributes(
		attribute.String("document.name", s.defaultDoc),
	))
	defer span.End()

	sess, err := s.open(ctx, s.defaultDoc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return sess, nil
}

func (s *viewingService) OpenDocument(ctx context.Context, filename string) (*model.ViewingSession, error) {
	ctx, span := tracer.Start(ctx, "ViewingService.OpenDocument", trace.WithAttributes(
		attribute.String("document.name", filename),
	))
	defer span.End()

	body, err := s.store.Read(ctx, filename)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read document")
		return nil, fmt.Errorf("%w: %w", ErrDocumentRead, err)
	}

	if res := s.scanner.Scan(string(body)); !res.Clean() {
		s.metrics.violation(res.Violation.Rule)
		span.SetAttributes(attribute.String("scan.violation", res.Violation.Rule))
		span.SetStatus(codes.Error, res.Violation.Message)
		s.log.Warn().
			Str("document", filename).
			Str("rule", res.Violation.Rule).
			Msg("document rejected by content scanner")
		return nil, res.Violation
	}

	sess, err := s.open(ctx, filename)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return sess, nil
}

// open creates the remote session, records it, and schedules the upload
// without waiting for it.
func (s *viewingService) open(ctx context.Context, name string) (*model.ViewingSession, error) {
	id, err := s.client.CreateSession(ctx, name)
	if err != nil {
		s.metrics.session("failed")
		s.log.Error().Err(err).Str("document", name).Msg("failed to create viewing session")
		return nil, fmt.Errorf("%w: %w", ErrSessionCreate, err)
	}
	s.metrics.session("created")

	now := s.now()
	sess := &model.ViewingSession{
		ID:          id,
		DisplayName: name,
		State:       model.SessionCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		s.log.Warn().Err(err).Str("viewing_session_id", id).Msg("failed to record viewing session")
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("viewing.session_id", id))
	s.log.Info().
		Str("viewing_session_id", id).
		Str("document", name).
		Msg("viewing session created")

	s.uploads.submit(ctx, id, name)
	return sess, nil
}

func (s *viewingService) Session(ctx context.Context, id string) (*model.ViewingSession, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	sess, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return sess, nil
}

func (s *viewingService) Documents(ctx context.Context) ([]model.Document, error) {
	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *viewingService) Wait(ctx context.Context) error {
	return s.uploads.wait(ctx)
}
