package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/soc2kit/compliance-copilot/internal/application"
	appcompliance "github.com/soc2kit/compliance-copilot/internal/application/compliance"
	domai "github.com/soc2kit/compliance-copilot/internal/domain/ai"
	domain "github.com/soc2kit/compliance-copilot/internal/domain/compliance"
	"github.com/soc2kit/compliance-copilot/internal/infra/extractor"
	"github.com/soc2kit/compliance-copilot/internal/middleware"
)

const maxUploadBytes = 10 << 20 // 10MB

// ArchiveStore keeps the original uploaded document. Optional; a nil
// store skips archiving.
type ArchiveStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Deps wires the router's collaborators.
type Deps struct {
	Compliance *appcompliance.Service
	Repo       domain.Repository
	Archive    ArchiveStore
	Clock      application.Clock
	APIKeys    map[string]string
	Health     http.HandlerFunc
}

type Router struct {
	svc     *appcompliance.Service
	repo    domain.Repository
	archive ArchiveStore
	clock   application.Clock
}

func NewRouter(d Deps) http.Handler {
	r := &Router{svc: d.Compliance, repo: d.Repo, archive: d.Archive, clock: d.Clock}
	if r.clock == nil {
		r.clock = application.SystemClock{}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey"},
	}))

	if d.Health != nil {
		mux.Get("/health", d.Health)
	} else {
		mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
	}
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/documents/extract", r.wrap(r.handleExtract))
		rt.Post("/analyze-compliance", r.wrap(r.handleAnalyze))
		rt.Post("/generate-policy", r.wrap(r.handleGeneratePolicy))

		// history requires an authenticated user
		rt.Group(func(auth chi.Router) {
			auth.Use(middleware.APIKeyAuth(d.APIKeys))
			auth.Post("/analyses", r.wrap(r.handleSaveAnalysis))
			auth.Get("/analyses", r.wrap(r.handleListAnalyses))
			auth.Get("/analyses/{id}", r.wrap(r.handleGetAnalysis))
			auth.Delete("/analyses/{id}", r.wrap(r.handleDeleteAnalysis))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap normalizes handler failures to {error: message} with the status
// the taxonomy assigns.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrValidation),
			errors.Is(err, domain.ErrUnsupportedType),
			errors.Is(err, domain.ErrExtraction):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrRecordNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domai.ErrRateLimited):
			status = http.StatusTooManyRequests
		case errors.Is(err, domai.ErrQuotaExceeded):
			status = http.StatusPaymentRequired
		case errors.Is(err, domai.ErrUpstream), errors.Is(err, domai.ErrUpstreamFormat):
			status = http.StatusBadGateway
		case errors.Is(err, domai.ErrNotConfigured):
			status = http.StatusInternalServerError
		}

		slog.Error("request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"error", err,
		)
		writeJSON(w, status, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// POST /v1/documents/extract
// multipart upload, field "file"; PDF only.
func (r *Router) handleExtract(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
	if err := req.ParseMultipartForm(maxUploadBytes); err != nil {
		return fmt.Errorf("%w: invalid multipart form", domain.ErrValidation)
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: no file provided", domain.ErrValidation)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	text, err := extractor.Extract(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	if r.archive != nil {
		key := fmt.Sprintf("uploads/%s/%s", id, header.Filename)
		if _, err := r.archive.Upload(req.Context(), key, data, extractor.MediaTypePDF); err != nil {
			// extraction already succeeded; archiving is best effort
			slog.Warn("archive upload failed", "key", key, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"file_name": header.Filename,
		"text":      text,
		"chars":     len(text),
	})
	return nil
}

// POST /v1/analyze-compliance
// Body: {"documentText": "..."}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		DocumentText string `json:"documentText"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}

	res, err := r.svc.Analyze(req.Context(), body.DocumentText)
	if err != nil {
		return err
	}

	middleware.IncrementAnalyses()
	writeJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/generate-policy
// Body: {"control": "...", "documentText": "..."} (documentText optional)
func (r *Router) handleGeneratePolicy(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Control      string `json:"control"`
		DocumentText string `json:"documentText"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}

	policy, err := r.svc.GeneratePolicy(req.Context(), body.Control, body.DocumentText)
	if err != nil {
		return err
	}

	middleware.IncrementPolicies()
	writeJSON(w, http.StatusOK, map[string]string{"policy": policy.Content})
	return nil
}

// POST /v1/analyses
func (r *Router) handleSaveAnalysis(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())

	var body struct {
		FileName          string                    `json:"file_name"`
		DocumentText      string                    `json:"document_text"`
		Covered           []domain.Control          `json:"covered"`
		Missing           []domain.Control          `json:"missing"`
		Reasoning         map[domain.Control]string `json:"reasoning"`
		GeneratedPolicies []domain.GeneratedPolicy  `json:"generated_policies"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	if body.FileName == "" {
		return fmt.Errorf("%w: file_name is required", domain.ErrValidation)
	}

	rec := &domain.AnalysisRecord{
		ID:                uuid.NewString(),
		UserID:            user,
		FileName:          body.FileName,
		DocumentText:      body.DocumentText,
		Covered:           body.Covered,
		Missing:           body.Missing,
		Reasoning:         body.Reasoning,
		GeneratedPolicies: body.GeneratedPolicies,
		CreatedAt:         r.clock.Now(),
	}
	if err := r.repo.Save(req.Context(), rec); err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, rec)
	return nil
}

// GET /v1/analyses
func (r *Router) handleListAnalyses(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())

	records, err := r.repo.List(req.Context(), user)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*domain.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, records)
	return nil
}

// GET /v1/analyses/{id}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")

	rec, err := r.repo.Get(req.Context(), user, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// DELETE /v1/analyses/{id}
func (r *Router) handleDeleteAnalysis(w http.ResponseWriter, req *http.Request) error {
	user := middleware.GetUserFromContext(req.Context())
	id := chi.URLParam(req, "id")

	if err := r.repo.Delete(req.Context(), user, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
