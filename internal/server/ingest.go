package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/pdfqa-go/internal/extractor"
	"github.com/54b3r/pdfqa-go/internal/logging"
)

// defaultMaxUploadBytes caps the accepted PDF upload size at 64 MiB.
const defaultMaxUploadBytes = 64 << 20

// handleIngest handles POST /api/ingest. The request is a multipart form with
// the PDF under the "file" field. The upload is spooled to a temp file,
// ingested, and removed.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logging.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "multipart field \"file\" is required", http.StatusBadRequest)
		s.countIngest(start, "bad_request")
		return
	}
	defer file.Close()

	tmp := filepath.Join(os.TempDir(), "pdfqa-"+uuid.NewString()+".pdf")
	out, err := os.Create(tmp)
	if err != nil {
		log.Error("spooling upload failed", "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		s.countIngest(start, "error")
		return
	}
	defer os.Remove(tmp)

	_, err = io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Error("spooling upload failed", "error", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		s.countIngest(start, "error")
		return
	}

	report, err := s.session.Ingest(r.Context(), tmp)
	switch {
	case errors.Is(err, extractor.ErrUnreadable):
		http.Error(w, "file is not a readable PDF", http.StatusUnprocessableEntity)
		s.countIngest(start, "unreadable")
		return
	case err != nil:
		log.Error("ingest failed", "error", err)
		http.Error(w, "ingest failed", http.StatusInternalServerError)
		s.countIngest(start, "error")
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		// The spool file carries a generated name; report the upload's.
		Document: header.Filename,
		Pages:    report.PageCount,
		Passages: report.PassageCount,
	})
	s.metrics.ingestPassages.Observe(float64(report.PassageCount))
	s.countIngest(start, "ok")
}

// countIngest records the outcome metrics for one ingest request.
func (s *Server) countIngest(start time.Time, outcome string) {
	s.metrics.ingestRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.ingestDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
