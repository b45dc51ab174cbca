package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/pdfqa-go/internal/extractor"
	"github.com/54b3r/pdfqa-go/internal/session"
)

// okHandler is a trivial downstream handler used by middleware tests.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// fakeSession implements sessionAPI with scripted responses.
type fakeSession struct {
	ingestReport *session.Report
	ingestErr    error
	askAnswer    string
	askErr       error
	resetCalls   int
	doc          string
	passages     int
	ready        bool
	lastQuestion string
	lastOpts     session.AskOptions
}

func (f *fakeSession) Ingest(ctx context.Context, path string) (*session.Report, error) {
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return f.ingestReport, nil
}

func (f *fakeSession) Ask(ctx context.Context, question string, opts session.AskOptions) (string, error) {
	f.lastQuestion = question
	f.lastOpts = opts
	return f.askAnswer, f.askErr
}

func (f *fakeSession) Reset(ctx context.Context) error {
	f.resetCalls++
	return nil
}

func (f *fakeSession) Status() (string, int, bool) {
	return f.doc, f.passages, f.ready
}

// newTestServer builds a Server over the fake session with a fresh metrics
// registry so parallel tests never collide on registration.
func newTestServer(t *testing.T, fs *fakeSession, mutate func(*Config)) *Server {
	t.Helper()
	cfg := &Config{Registry: prometheus.NewRegistry()}
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(fs, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_New_NilSession(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &Config{Registry: prometheus.NewRegistry()}); err == nil {
		t.Fatal("expected an error for a nil session")
	}
}

func TestServer_Ask_OK(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{askAnswer: "a thorough answer"}
	s := newTestServer(t, fs, nil)

	w := postJSON(t, s.Handler(), "/api/ask", askRequest{Question: "what is it?", K: 5, Detail: true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp askResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Answer != "a thorough answer" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if fs.lastOpts.K != 5 || !fs.lastOpts.RequireDetail {
		t.Errorf("session received opts %+v", fs.lastOpts)
	}
}

func TestServer_Ask_EmptyQuestion(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, nil)
	w := postJSON(t, s.Handler(), "/api/ask", askRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestServer_Ask_InvalidBody(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestServer_Ask_NoDocument(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{askErr: session.ErrNoDocument}
	s := newTestServer(t, fs, nil)

	w := postJSON(t, s.Handler(), "/api/ask", askRequest{Question: "q"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 before ingest, got %d", w.Code)
	}
}

func TestServer_Ask_GenerationError(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{askErr: errors.New("backend down")}
	s := newTestServer(t, fs, nil)

	w := postJSON(t, s.Handler(), "/api/ask", askRequest{Question: "q"})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "backend down") {
		t.Error("internal error details leaked to the client")
	}
}

// multipartUpload builds a multipart body with one "file" field.
func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestServer_Ingest_OK(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{ingestReport: &session.Report{DocumentName: "spool", PageCount: 4, PassageCount: 12}}
	s := newTestServer(t, fs, nil)

	body, contentType := multipartUpload(t, "paper.pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ingestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Document != "paper.pdf" || resp.Pages != 4 || resp.Passages != 12 {
		t.Errorf("response = %+v", resp)
	}
}

func TestServer_Ingest_MissingFile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader("not multipart"))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without a file field, got %d", w.Code)
	}
}

func TestServer_Ingest_Unreadable(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{ingestErr: fmt.Errorf("wrapped: %w", extractor.ErrUnreadable)}
	s := newTestServer(t, fs, nil)

	body, contentType := multipartUpload(t, "junk.pdf", []byte("not a pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for an unreadable PDF, got %d", w.Code)
	}
}

func TestServer_Reset(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{}
	s := newTestServer(t, fs, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if fs.resetCalls != 1 {
		t.Errorf("reset called %d times, want 1", fs.resetCalls)
	}
}

func TestServer_Status(t *testing.T) {
	t.Parallel()

	fs := &fakeSession{doc: "paper.pdf", passages: 42, ready: true}
	s := newTestServer(t, fs, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Document != "paper.pdf" || resp.Passages != 42 || !resp.Ready || resp.State != "ready" {
		t.Errorf("status = %+v", resp)
	}
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestServer_AuthProtectsAPIButNotHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeSession{askAnswer: "x"}, func(c *Config) {
		c.APIKey = "secret"
	})

	w := postJSON(t, s.Handler(), "/api/ask", askRequest{Question: "q"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health must stay open, got %d", rec.Code)
	}

	b, _ := json.Marshal(askRequest{Question: "q"})
	authed := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewReader(b))
	authed.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, authed)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with a valid token, got %d: %s", rec.Code, rec.Body.String())
	}
}
