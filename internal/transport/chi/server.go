// Package chi is the HTTP transport: thin JSON wrappers over the usecase
// services plus health and metrics endpoints.
package chi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/domain"
	healthuc "github.com/studyflow-ai/studyflow/internal/usecase/health"
	knowledgeuc "github.com/studyflow-ai/studyflow/internal/usecase/knowledge"
	retrievaluc "github.com/studyflow-ai/studyflow/internal/usecase/retrieval"
)

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest              errorCode = "bad_request"
	codeValidationFailed        errorCode = "validation_failed"
	codeUnauthorized            errorCode = "unauthorized"
	codeDocumentNotFound        errorCode = "document_not_found"
	codeKnowledgeNotFound       errorCode = "knowledge_not_found"
	codeVectorDimMismatch       errorCode = "vector_dim_mismatch"
	codeEmbeddingProviderError  errorCode = "embedding_provider_error"
	codeGenerationProviderError errorCode = "generation_provider_error"
	codeInternalError           errorCode = "internal_error"
)

// ErrorResponse is the uniform error body for every non-2xx response.
type ErrorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecase services to HTTP routes.
type Server struct {
	retrieval     *retrievaluc.Service
	knowledge     *knowledgeuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	retrieval *retrievaluc.Service,
	knowledge *knowledgeuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		retrieval: retrieval,
		knowledge: knowledge,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeKnowledgeNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrGenerationProviderError,
			http.StatusBadGateway, codeGenerationProviderError),
	}
	return s
}

// Routes registers all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.UploadDocument)
			r.Get("/", s.ListDocuments)
			r.Get("/{documentID}", s.GetDocument)
			r.Delete("/{documentID}", s.DeleteDocument)
		})

		r.Post("/qa/ask", s.Ask)

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/extract", s.ExtractKnowledge)
			r.Get("/{documentID}", s.GetKnowledge)
			r.Get("/{documentID}/summary", s.KnowledgeSummary)
			r.Get("/{documentID}/graph", s.KnowledgeGraph)
			r.Get("/{documentID}/graph/related/{nodeID}", s.GraphRelated)
			r.Get("/{documentID}/graph/path", s.GraphPath)
		})
	})
}

// UploadDocumentRequest is the POST /api/documents body. Content is the
// already extracted text of the document, page-separated by form feeds.
type UploadDocumentRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UploadDocument handles POST /api/documents.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Document name is required")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Document content is required")
		return
	}

	id := req.ID
	if id == "" {
		id = deriveDocumentID(req.Name, req.Content)
	}

	doc, err := s.retrieval.Upload(r.Context(), domain.Document{
		ID:         id,
		Name:       req.Name,
		Content:    req.Content,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

// DocumentListResponse is the GET /api/documents body.
type DocumentListResponse struct {
	Items []domain.Document `json:"items"`
	Total int               `json:"total"`
}

// ListDocuments handles GET /api/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.retrieval.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Items: docs, Total: len(docs)})
}

// GetDocument handles GET /api/documents/{documentID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.retrieval.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/{documentID}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.retrieval.Delete(r.Context(), chi.URLParam(r, "documentID")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AskRequest is the POST /api/qa/ask body.
type AskRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
}

// Ask handles POST /api/qa/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "document_id is required")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "question is required")
		return
	}

	answer, err := s.retrieval.Ask(r.Context(), req.DocumentID, req.Question, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// ExtractKnowledgeRequest is the POST /api/knowledge/extract body.
type ExtractKnowledgeRequest struct {
	DocumentID string `json:"document_id"`
}

// ExtractKnowledge handles POST /api/knowledge/extract.
func (s *Server) ExtractKnowledge(w http.ResponseWriter, r *http.Request) {
	var req ExtractKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "document_id is required")
		return
	}

	structure, err := s.knowledge.Extract(r.Context(), req.DocumentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, structure)
}

// GetKnowledge handles GET /api/knowledge/{documentID}.
func (s *Server) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	structure, err := s.knowledge.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, structure)
}

// KnowledgeSummary handles GET /api/knowledge/{documentID}/summary.
func (s *Server) KnowledgeSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := s.knowledge.Summary(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// KnowledgeGraph handles GET /api/knowledge/{documentID}/graph.
func (s *Server) KnowledgeGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.knowledge.Graph(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": g.Nodes(),
		"edges": g.Edges(),
	})
}

// GraphRelated handles GET /api/knowledge/{documentID}/graph/related/{nodeID}.
func (s *Server) GraphRelated(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	related, err := s.knowledge.Related(r.Context(), chi.URLParam(r, "documentID"), nodeID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"node_id": nodeID,
		"related": related,
	})
}

// GraphPath handles GET /api/knowledge/{documentID}/graph/path?from=&to=.
func (s *Server) GraphPath(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"query parameters from and to are required")
		return
	}

	path, err := s.knowledge.Path(r.Context(), chi.URLParam(r, "documentID"), from, to)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"from": from,
		"to":   to,
		"path": path,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// deriveDocumentID builds a stable id for uploads that carry none, so that
// re-uploading the same file hits the index hash guard instead of creating a
// second partition.
func deriveDocumentID(name, content string) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return "doc_" + hex.EncodeToString(h.Sum(nil))[:12]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
