package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/examkit/answerkey/internal/core/domain"
	"github.com/examkit/answerkey/internal/core/ports"
	"github.com/examkit/answerkey/internal/observability/metrics"
)

const serviceName = "answerkey-api"

type Router struct {
	ingest   ports.PageIngestor
	pages    ports.PageReader
	answers  ports.AnswerReader
	mappings ports.MappingBuilder
	metrics  *metrics.HTTPServerMetrics

	ingestRPS   int
	ingestBurst int
}

func NewRouter(
	ingest ports.PageIngestor,
	pages ports.PageReader,
	answers ports.AnswerReader,
	mappings ports.MappingBuilder,
	httpMetrics *metrics.HTTPServerMetrics,
	ingestRPS, ingestBurst int,
) *Router {
	return &Router{
		ingest:      ingest,
		pages:       pages,
		answers:     answers,
		mappings:    mappings,
		metrics:     httpMetrics,
		ingestRPS:   ingestRPS,
		ingestBurst: ingestBurst,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/v1/pages", rateLimitMiddleware(
		http.HandlerFunc(rt.uploadPage),
		rt.ingestRPS,
		rt.ingestBurst,
		func() { rt.metrics.RecordRateLimited(serviceName) },
	))
	mux.HandleFunc("/v1/pages/", rt.getPageByID)
	mux.HandleFunc("/v1/answers/", rt.getAnswerByUID)
	// A mapping build walks every stored record; one at a time is plenty.
	mux.Handle("/v1/mappings/build", backpressureMiddleware(http.HandlerFunc(rt.buildMapping), 1, time.Second))
	mux.HandleFunc("/v1/mappings/report", rt.getMappingReport)
	mux.Handle("/metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload domain.PagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	page, err := rt.ingest.Upload(r.Context(), payload)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.metrics.RecordPageIngested(serviceName)
	writeJSON(w, http.StatusAccepted, page)
}

func (rt *Router) getPageByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/pages/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page id is required"})
		return
	}

	page, err := rt.pages.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (rt *Router) getAnswerByUID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	uid := strings.TrimPrefix(r.URL.Path, "/v1/answers/")
	if uid == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "answer uid is required"})
		return
	}

	record, err := rt.answers.GetByUID(r.Context(), uid)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) buildMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	report, err := rt.mappings.Build(r.Context())
	rt.recordMappingBuild(err, report)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) getMappingReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	report, err := rt.mappings.Report(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) recordMappingBuild(err error, report *domain.MappingReport) {
	if err != nil {
		rt.metrics.RecordMappingBuild(serviceName, err, 0, 0, 0)
		return
	}
	rt.metrics.RecordMappingBuild(
		serviceName,
		nil,
		report.Stats.CoverageRatio,
		report.Stats.Unresolved,
		report.Stats.Conflicts,
	)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
