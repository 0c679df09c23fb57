package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"docviewer/internal/model"
	"docviewer/internal/repository"
	"docviewer/internal/storage"
	"docviewer/internal/viewing"
)

// uploader runs detached source uploads. Results are only visible through
// logs, metrics and the session ledger; nothing is reported to the caller.
type uploader struct {
	store    storage.DocumentStore
	client   viewing.Client
	sessions repository.SessionRepository
	slots    *semaphore.Weighted
	timeout  time.Duration
	log      zerolog.Logger
	metrics  *Metrics
	wg       sync.WaitGroup
}

// submit schedules the upload of name into session id and returns at once.
// The request context's values (trace, request id) are kept but its
// cancellation is not: a client disconnect does not stop the upload.
func (u *uploader) submit(ctx context.Context, id, name string) {
	ctx = context.WithoutCancel(ctx)
	id, name = strings.Clone(id), strings.Clone(name)

	u.metrics.uploadScheduled()
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		start := time.Now()
		outcome := "failed"
		defer func() {
			if r := recover(); r != nil {
				u.record(ctx, id, model.SessionUploadFailed, fmt.Sprintf("upload panicked: %v", r))
				u.log.Error().
					Str("viewing_session_id", id).
					Str("document", name).
					Interface("panic", r).
					Msg("background upload panicked")
			}
			u.metrics.uploadFinished(outcome, time.Since(start))
		}()

		if err := u.run(ctx, id, name); err != nil {
			u.record(ctx, id, model.SessionUploadFailed, err.Error())
			u.log.Error().Err(err).
				Str("viewing_session_id", id).
				Str("document", name).
				Dur("took", time.Since(start)).
				Msg("background upload failed")
			return
		}
		outcome = "completed"
		u.record(ctx, id, model.SessionCompleted, "")
		u.log.Info().
			Str("viewing_session_id", id).
			Str("document", name).
			Dur("took", time.Since(start)).
			Msg("background upload completed")
	}()
}

func (u *uploader) run(ctx context.Context, id, name string) (err error) {
	ctx, span := tracer.Start(ctx, "ViewingService.upload", trace.WithAttributes(
		attribute.String("viewing.session_id", id),
		attribute.String("document.name", name),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	if err := u.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for upload slot: %w", err)
	}
	defer u.slots.Release(1)

	u.record(ctx, id, model.SessionUploading, "")

	body, err := u.store.Read(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDocumentRead, err)
	}
	span.SetAttributes(attribute.Int("document.size", len(body)))

	if err := u.client.UploadSource(ctx, id, body); err != nil {
		return err
	}
	return nil
}

// record writes a state transition to the ledger. Ledger failures are logged
// and otherwise ignored; they never affect the upload.
func (u *uploader) record(ctx context.Context, id string, state model.SessionState, errMsg string) {
	if err := u.sessions.UpdateState(ctx, id, state, errMsg); err != nil {
		u.log.Warn().Err(err).
			Str("viewing_session_id", id).
			Str("state", string(state)).
			Msg("failed to record session state")
	}
}

// wait blocks until every submitted upload has finished or ctx is done.
func (u *uploader) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		u.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
