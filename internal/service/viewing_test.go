package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docviewer/internal/model"
	"docviewer/internal/repository"
	repoMocks "docviewer/internal/repository/mocks"
	"docviewer/internal/scanner"
	"docviewer/internal/storage"
	storeMocks "docviewer/internal/storage/mocks"
	clientMocks "docviewer/internal/viewing/mocks"
)

const maliciousHTML = `<html><script type="text/javascript">fetch("http://evil")</script></html>`

// spyScanner wraps the real scanner and counts calls.
type spyScanner struct {
	inner *scanner.Scanner
	calls int
}

func (s *spyScanner) Scan(text string) scanner.Result {
	s.calls++
	return s.inner.Scan(text)
}

type fixture struct {
	store    *storeMocks.MockDocumentStore
	client   *clientMocks.MockClient
	sessions *repoMocks.MockSessionRepository
	scanner  *spyScanner
	metrics  *Metrics
	logs     *bytes.Buffer
	svc      ViewingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	f := &fixture{
		store:    new(storeMocks.MockDocumentStore),
		client:   new(clientMocks.MockClient),
		sessions: new(repoMocks.MockSessionRepository),
		scanner:  &spyScanner{inner: scanner.New()},
		metrics:  metrics,
		logs:     &bytes.Buffer{},
	}
	f.svc = NewViewingService(f.store, f.scanner, f.client, f.sessions, Options{
		DefaultDocument:      "example.pdf",
		UploadTimeout:        5 * time.Second,
		MaxConcurrentUploads: 2,
		Logger:               zerolog.New(zerolog.SyncWriter(f.logs)),
		Metrics:              metrics,
	})
	return f
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Wait(ctx))
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.store.AssertExpectations(t)
	f.client.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
}

func TestViewingService_OpenDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("clean document", func(t *testing.T) {
		f := newFixture(t)
		body := []byte("%PDF-1.7 clean")
		f.store.On("Read", mock.Anything, "clean.pdf").Return(body, nil).Twice()
		f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("sess-1", nil).Once()
		f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *model.ViewingSession) bool {
			return s.ID == "sess-1" && s.DisplayName == "clean.pdf" && s.State == model.SessionCreated
		})).Return(nil).Once()
		f.sessions.On("UpdateState", mock.Anything, "sess-1", model.SessionUploading, "").Return(nil).Once()
		f.client.On("UploadSource", mock.Anything, "sess-1", body).Return(nil).Once()
		f.sessions.On("UpdateState", mock.Anything, "sess-1", model.SessionCompleted, "").Return(nil).Once()

		sess, err := f.svc.OpenDocument(ctx, "clean.pdf")
		require.NoError(t, err)
		assert.Equal(t, "sess-1", sess.ID)
		assert.Equal(t, model.SessionCreated, sess.State)
		assert.Equal(t, 1, f.scanner.calls)

		f.wait(t)
		f.assertExpectations(t)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.uploads.WithLabelValues("completed")))
		assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.uploadsPending))
	})

	t.Run("violation creates no session", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Read", mock.Anything, "malicious.html").Return([]byte(maliciousHTML), nil).Once()

		sess, err := f.svc.OpenDocument(ctx, "malicious.html")
		assert.Nil(t, sess)

		var v *scanner.Violation
		require.True(t, errors.As(err, &v))
		assert.Equal(t, "Potential security vulnerabilities: JavaScript execution", v.Message)

		f.wait(t)
		f.client.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
		f.client.AssertNotCalled(t, "UploadSource", mock.Anything, mock.Anything, mock.Anything)
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.violations.WithLabelValues("javascript")))
	})

	t.Run("missing document is not a violation", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Read", mock.Anything, "missing.pdf").Return(nil, storage.ErrNotFound).Once()

		_, err := f.svc.OpenDocument(ctx, "missing.pdf")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		var v *scanner.Violation
		assert.False(t, errors.As(err, &v))
		assert.Equal(t, 0, f.scanner.calls)
		f.client.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("session creation failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Read", mock.Anything, "clean.pdf").Return([]byte("ok"), nil).Once()
		f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("", errors.New("connection refused")).Once()

		sess, err := f.svc.OpenDocument(ctx, "clean.pdf")
		assert.Nil(t, sess)
		assert.ErrorIs(t, err, ErrSessionCreate)
		assert.ErrorContains(t, err, "connection refused")

		f.wait(t)
		f.client.AssertNotCalled(t, "UploadSource", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.sessions.WithLabelValues("failed")))
	})

	t.Run("upload failure does not change the result", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Read", mock.Anything, "clean.pdf").Return([]byte("ok"), nil).Twice()
		f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("sess-2", nil).Once()
		f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
		f.sessions.On("UpdateState", mock.Anything, "sess-2", model.SessionUploading, "").Return(nil).Once()
		f.client.On("UploadSource", mock.Anything, "sess-2", []byte("ok")).Return(errors.New("503 from PAS")).Once()
		f.sessions.On("UpdateState", mock.Anything, "sess-2", model.SessionUploadFailed, "503 from PAS").Return(nil).Once()

		sess, err := f.svc.OpenDocument(ctx, "clean.pdf")
		require.NoError(t, err)
		assert.Equal(t, "sess-2", sess.ID)

		f.wait(t)
		f.assertExpectations(t)
		assert.Contains(t, f.logs.String(), "background upload failed")
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.uploads.WithLabelValues("failed")))
	})

	t.Run("ledger failure is tolerated", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Read", mock.Anything, "clean.pdf").Return([]byte("ok"), nil).Twice()
		f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("sess-3", nil).Once()
		f.sessions.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
		f.sessions.On("UpdateState", mock.Anything, "sess-3", mock.Anything, "").Return(errors.New("db down")).Twice()
		f.client.On("UploadSource", mock.Anything, "sess-3", []byte("ok")).Return(nil).Once()

		sess, err := f.svc.OpenDocument(ctx, "clean.pdf")
		require.NoError(t, err)
		assert.Equal(t, "sess-3", sess.ID)

		f.wait(t)
		f.assertExpectations(t)
		assert.Contains(t, f.logs.String(), "failed to record session state")
	})
}

func TestViewingService_OpenDocumentDoesNotWaitForUpload(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})

	f.store.On("Read", mock.Anything, "clean.pdf").Return([]byte("ok"), nil)
	f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("sess-slow", nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("UpdateState", mock.Anything, "sess-slow", mock.Anything, mock.Anything).Return(nil)
	f.client.On("UploadSource", mock.Anything, "sess-slow", mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	done := make(chan *model.ViewingSession, 1)
	go func() {
		sess, err := f.svc.OpenDocument(context.Background(), "clean.pdf")
		assert.NoError(t, err)
		done <- sess
	}()

	select {
	case sess := <-done:
		assert.Equal(t, "sess-slow", sess.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("OpenDocument blocked on the background upload")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.svc.Wait(ctx), context.DeadlineExceeded)

	close(release)
	f.wait(t)
}

func TestViewingService_UploadSurvivesRequestCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.store.On("Read", mock.Anything, "clean.pdf").Return([]byte("ok"), nil)
	f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("sess-4", nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.sessions.On("UpdateState", mock.Anything, "sess-4", mock.Anything, mock.Anything).Return(nil)
	f.client.On("UploadSource", mock.Anything, "sess-4", []byte("ok")).
		Run(func(args mock.Arguments) {
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(nil).Once()

	_, err := f.svc.OpenDocument(ctx, "clean.pdf")
	require.NoError(t, err)
	cancel()

	f.wait(t)
	f.client.AssertExpectations(t)
}

func TestViewingService_UploadPanicRecordsFailure(t *testing.T) {
	f := newFixture(t)

	f.store.On("Read", mock.Anything, "clean.pdf").Return([]byte("ok"), nil)
	f.client.On("CreateSession", mock.Anything, "clean.pdf").Return("sess-panic", nil).Once()
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.sessions.On("UpdateState", mock.Anything, "sess-panic", model.SessionUploading, "").Return(nil).Once()
	f.client.On("UploadSource", mock.Anything, "sess-panic", []byte("ok")).
		Run(func(mock.Arguments) { panic("codec exploded") }).
		Return(nil).Once()
	f.sessions.On("UpdateState", mock.Anything, "sess-panic", model.SessionUploadFailed, mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "codec exploded")
	})).Return(nil).Once()

	sess, err := f.svc.OpenDocument(context.Background(), "clean.pdf")
	require.NoError(t, err)
	assert.Equal(t, "sess-panic", sess.ID)

	f.wait(t)
	f.assertExpectations(t)
	assert.Contains(t, f.logs.String(), "background upload panicked")
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.uploads.WithLabelValues("failed")))
}

func TestViewingService_OpenDefault(t *testing.T) {
	f := newFixture(t)
	// The default document is served even when it would fail a scan.
	f.client.On("CreateSession", mock.Anything, "example.pdf").Return("sess-default", nil).Once()
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.sessions.On("UpdateState", mock.Anything, "sess-default", mock.Anything, "").Return(nil).Twice()
	f.store.On("Read", mock.Anything, "example.pdf").Return([]byte(maliciousHTML), nil).Once()
	f.client.On("UploadSource", mock.Anything, "sess-default", []byte(maliciousHTML)).Return(nil).Once()

	sess, err := f.svc.OpenDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-default", sess.ID)
	assert.Equal(t, "example.pdf", sess.DisplayName)

	f.wait(t)
	assert.Equal(t, 0, f.scanner.calls)
	f.assertExpectations(t)
}

func TestViewingService_OpenDefaultUploadReadFailure(t *testing.T) {
	f := newFixture(t)
	f.client.On("CreateSession", mock.Anything, "example.pdf").Return("sess-5", nil).Once()
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.sessions.On("UpdateState", mock.Anything, "sess-5", model.SessionUploading, "").Return(nil).Once()
	f.store.On("Read", mock.Anything, "example.pdf").Return(nil, storage.ErrNotFound).Once()
	f.sessions.On("UpdateState", mock.Anything, "sess-5", model.SessionUploadFailed, mock.MatchedBy(func(msg string) bool {
		return msg == "read document: document not found"
	})).Return(nil).Once()

	sess, err := f.svc.OpenDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sess-5", sess.ID)

	f.wait(t)
	f.assertExpectations(t)
	f.client.AssertNotCalled(t, "UploadSource", mock.Anything, mock.Anything, mock.Anything)
}

func TestViewingService_Session(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		f := newFixture(t)
		want := &model.ViewingSession{ID: "abc", State: model.SessionCompleted}
		f.sessions.On("FindByID", ctx, "abc").Return(want, nil).Once()

		got, err := f.svc.Session(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.sessions.On("FindByID", ctx, "nope").Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.Session(ctx, "nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Session(ctx, "")
		assert.ErrorIs(t, err, ErrIDRequired)
	})

	t.Run("no ledger", func(t *testing.T) {
		svc := NewViewingService(new(storeMocks.MockDocumentStore), scanner.New(), new(clientMocks.MockClient), nil, Options{})
		_, err := svc.Session(ctx, "abc")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestViewingService_Documents(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		docs := []model.Document{{Name: "a.html"}, {Name: "b.pdf"}}
		f.store.On("List", ctx).Return(docs, nil).Once()

		got, err := f.svc.Documents(ctx)
		require.NoError(t, err)
		assert.Equal(t, docs, got)
	})

	t.Run("store error", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("List", ctx).Return(nil, errors.New("permission denied")).Once()

		_, err := f.svc.Documents(ctx)
		assert.EqualError(t, err, "list documents: permission denied")
	})
}
