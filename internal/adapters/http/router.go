package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/meducate/labs-orchestrator/internal/core/domain"
	"github.com/meducate/labs-orchestrator/internal/core/ports"
	"github.com/meducate/labs-orchestrator/internal/core/usecase"
	"github.com/meducate/labs-orchestrator/internal/infrastructure/inspect"
	"github.com/meducate/labs-orchestrator/internal/observability/metrics"
)

// maxUploadBytes bounds a whole multipart submission. Individual files have
// tighter per-type ceilings enforced by request validation.
const maxUploadBytes = 512 << 20

type Router struct {
	orchestrator ports.InterpretationOrchestrator
	gateway      ports.InterpretationGateway
	history      ports.JobHistoryStore
	metrics      *metrics.HTTPServerMetrics
	rate         *rateLimiter
	logger       *slog.Logger
}

type RouterOptions struct {
	History ports.JobHistoryStore
	Metrics *metrics.HTTPServerMetrics
	// RequestsPerSecond caps inbound traffic per client IP. Zero disables
	// the limiter.
	RequestsPerSecond float64
	Burst             int
}

func NewRouter(
	orchestrator ports.InterpretationOrchestrator,
	gateway ports.InterpretationGateway,
	logger *slog.Logger,
	options RouterOptions,
) *Router {
	var limiter *rateLimiter
	if options.RequestsPerSecond > 0 {
		limiter = newRateLimiter(options.RequestsPerSecond, options.Burst)
	}
	return &Router{
		orchestrator: orchestrator,
		gateway:      gateway,
		history:      options.History,
		metrics:      options.Metrics,
		rate:         limiter,
		logger:       logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/interpretations", rt.startInterpretation)
	mux.HandleFunc("/v1/interpretations/current", rt.currentInterpretation)
	mux.HandleFunc("/v1/jobs", rt.listJobs)
	mux.HandleFunc("/v1/jobs/stats", rt.jobStats)
	mux.HandleFunc("/v1/usage", rt.subscriptionUsage)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.rate != nil {
		handler = rt.rate.middleware(handler)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("labs-orchestrator", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) startInterpretation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		status := http.StatusBadRequest
		message := "invalid multipart form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			message = usecase.MessagePayloadTooLarge
		}
		writeJSON(w, status, map[string]string{"error": message})
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := parseInterpretationForm(r)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	if err := inspect.CheckAll(req); err != nil {
		rt.writeError(w, err)
		return
	}

	state, err := rt.orchestrator.Start(r.Context(), req)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, state)
}

func (rt *Router) currentInterpretation(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, rt.orchestrator.Snapshot())
	case http.MethodDelete:
		if err := rt.orchestrator.Cancel(r.Context()); err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rt.orchestrator.Snapshot())
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) listJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	history, err := rt.gateway.ListJobs(r.Context(), limit)
	if err != nil {
		if rt.history != nil {
			if cached, cacheErr := rt.history.ListRecent(r.Context(), limit); cacheErr == nil {
				rt.logger.Warn("serving job history from local cache", "error", err)
				writeJSON(w, http.StatusOK, domain.JobHistory{TotalJobs: len(cached), Jobs: cached})
				return
			}
		}
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (rt *Router) jobStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, err := rt.gateway.JobStats(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) subscriptionUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	usage, err := rt.gateway.SubscriptionUsage(r.Context())
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func parseInterpretationForm(r *http.Request) (domain.InterpretationRequest, error) {
	req := domain.InterpretationRequest{
		Language:       domain.Language(strings.TrimSpace(r.FormValue("language"))),
		EducationLevel: domain.EducationLevel(strings.TrimSpace(r.FormValue("education_level"))),
		TechnicalLevel: domain.TechnicalLevel(strings.TrimSpace(r.FormValue("technical_level"))),
	}

	headers := r.MultipartForm.File["files"]
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return domain.InterpretationRequest{}, domain.WrapError(domain.ErrBadRequest, "read upload", err)
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return domain.InterpretationRequest{}, domain.WrapError(domain.ErrBadRequest, "read upload", err)
		}
		req.Files = append(req.Files, domain.Attachment{
			Filename:  header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Content:   content,
		})
	}
	return req, req.Validate()
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	if status >= 500 {
		rt.logger.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
