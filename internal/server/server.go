package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nithinv16/dukaaon-extractor/internal/async"
	"github.com/nithinv16/dukaaon-extractor/internal/entity"
)

// Extractor runs one synchronous pipeline pass.
type Extractor interface {
	ExtractFromImage(ctx context.Context, image []byte, mimeType, sellerID string) entity.ExtractionResult
}

// Enqueuer accepts extraction jobs for background processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// CorrectionSaver persists human corrections of extracted products.
type CorrectionSaver interface {
	SaveCorrections(ctx context.Context, sellerID string, extracted, confirmed []entity.ExtractedProduct) (int, error)
}

// Exporter renders confirmed products as an XLSX workbook.
type Exporter interface {
	ExportProductsXLSX(products []entity.ExtractedProduct) ([]byte, error)
}

// Server is the HTTP surface of the extraction daemon: upload ingestion,
// result retrieval, the correction endpoint of the review flow, and the
// bulk-entry export.
type Server struct {
	logger    *slog.Logger
	extractor Extractor
	queue     Enqueuer
	feedback  CorrectionSaver
	exporter  Exporter

	results sync.Map // uuid.UUID -> entity.ExtractionResult
}

func New(logger *slog.Logger, extractor Extractor, queue Enqueuer, feedback CorrectionSaver, exporter Exporter) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:    logger,
		extractor: extractor,
		queue:     queue,
		feedback:  feedback,
		exporter:  exporter,
	}
}

// RecordResult stores a finished background extraction for later retrieval.
func (s *Server) RecordResult(uploadID uuid.UUID, result entity.ExtractionResult) {
	s.results.Store(uploadID, result)
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/v1/extractions", s.handleEnqueue)
	r.Get("/v1/extractions/{uploadID}", s.handleResult)
	r.Post("/v1/extractions/sync", s.handleExtractSync)
	r.Post("/v1/corrections", s.handleCorrections)
	r.Post("/v1/exports/products.xlsx", s.handleExport)

	return r
}

// handleEnqueue accepts one raw image per request and queues it. Multi-file
// imports post once per file so one bad image never blocks the rest.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	image, err := io.ReadAll(r.Body)
	if err != nil || len(image) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body must be the image bytes")
		return
	}

	uploadID := uuid.New()
	job := async.Job{
		UploadID:    uploadID,
		Image:       image,
		MimeType:    r.Header.Get("Content-Type"),
		SellerID:    r.URL.Query().Get("seller_id"),
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(r.Context(), job); err != nil {
		s.logger.Error("server.enqueue.failed", "upload_id", uploadID, "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "queue unavailable")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{"upload_id": uploadID})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	uploadID, err := uuid.Parse(chi.URLParam(r, "uploadID"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload id")
		return
	}
	result, ok := s.results.Load(uploadID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "no result for this upload yet")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExtractSync(w http.ResponseWriter, r *http.Request) {
	image, err := io.ReadAll(r.Body)
	if err != nil || len(image) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body must be the image bytes")
		return
	}

	result := s.extractor.ExtractFromImage(r.Context(),
		image, r.Header.Get("Content-Type"), r.URL.Query().Get("seller_id"))
	s.writeJSON(w, http.StatusOK, result)
}

type correctionsRequest struct {
	SellerID  string                    `json:"seller_id"`
	Extracted []entity.ExtractedProduct `json:"extracted"`
	Confirmed []entity.ExtractedProduct `json:"confirmed"`
}

// handleCorrections closes the review loop: the console posts the products as
// extracted next to the products as confirmed by the seller, and every changed
// pair becomes a correction record feeding future few-shot prompts.
func (s *Server) handleCorrections(w http.ResponseWriter, r *http.Request) {
	var req correctionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid corrections payload")
		return
	}
	if len(req.Confirmed) == 0 {
		s.writeError(w, http.StatusBadRequest, "confirmed products are required")
		return
	}

	saved, err := s.feedback.SaveCorrections(r.Context(), req.SellerID, req.Extracted, req.Confirmed)
	if err != nil {
		s.logger.Error("server.corrections.failed", "seller_id", req.SellerID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not save corrections")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"saved": saved})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var products []entity.ExtractedProduct
	if err := json.NewDecoder(r.Body).Decode(&products); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid products payload")
		return
	}

	workbook, err := s.exporter.ExportProductsXLSX(products)
	if err != nil {
		s.logger.Error("server.export.failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "could not build workbook")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("server.write_json_failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]any{"error": msg})
}
