// Package transport exposes the engine over HTTP. The message endpoint
// mirrors what a chat-platform webhook bridge delivers: sender, text,
// and optional file attachments.
package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/ingest"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/rag"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/runtime"
)

const (
	maxBodyBytes    = 32 << 20 // attachments ride inline as base64
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	rt     *runtime.Runtime
	http   *http.Server
	logger *slog.Logger
}

func NewServer(rt *runtime.Runtime, cfg config.ServerConfig) *Server {
	s := &Server{
		rt:     rt,
		logger: slog.Default().With("component", "transport"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/messages", s.handleMessage)
	r.Get("/v1/tools", s.handleListTools)
	r.Post("/v1/knowledge", s.handleAddKnowledge)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

type attachmentPayload struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data"` // base64
}

type messageRequest struct {
	ID          string              `json:"id,omitempty"`
	SenderID    string              `json:"sender_id"`
	Content     string              `json:"content"`
	Attachments []attachmentPayload `json:"attachments,omitempty"`
}

type documentOutcome struct {
	DocumentID  string `json:"document_id,omitempty"`
	Filename    string `json:"filename"`
	Success     bool   `json:"success"`
	Chunks      int    `json:"chunks,omitempty"`
	Method      string `json:"parsing_method,omitempty"`
	Error       string `json:"error,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

type messageResponse struct {
	ID        string            `json:"id"`
	Reply     string            `json:"reply"`
	Path      string            `json:"path"`
	ToolsUsed []string          `json:"tools_used,omitempty"`
	Documents []documentOutcome `json:"documents,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SenderID == "" {
		s.writeError(w, http.StatusBadRequest, "sender_id is required")
		return
	}
	if req.Content == "" && len(req.Attachments) == 0 {
		s.writeError(w, http.StatusBadRequest, "content or attachments required")
		return
	}

	ctx := r.Context()
	var docs []documentOutcome
	for _, ap := range req.Attachments {
		docs = append(docs, s.ingestAttachment(ctx, req.SenderID, ap))
	}

	resp := messageResponse{
		ID:        req.ID,
		Documents: docs,
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}

	if req.Content != "" {
		routed := s.rt.Router.Route(ctx, req.SenderID, req.Content)
		resp.Reply = routed.Text
		resp.Path = string(routed.Path)
		for _, tr := range routed.ToolResults {
			resp.ToolsUsed = append(resp.ToolsUsed, tr.ToolName)
		}
	} else {
		resp.Reply = ingestOnlyReply(docs)
		resp.Path = "ingest"
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) ingestAttachment(ctx context.Context, senderID string, ap attachmentPayload) documentOutcome {
	data, err := base64.StdEncoding.DecodeString(ap.Data)
	if err != nil {
		return documentOutcome{
			Filename: ap.Filename,
			Error:    "attachment data is not valid base64",
		}
	}

	result, err := s.rt.IngestAttachment(ctx, senderID, ingest.Attachment{
		ID:       ap.ID,
		Filename: ap.Filename,
		MimeType: ap.MimeType,
		Data:     data,
	})
	if err != nil {
		s.logger.Error("attachment indexing failed", "filename", ap.Filename, "error", err)
		return documentOutcome{
			DocumentID: result.DocumentID,
			Filename:   ap.Filename,
			Error:      "document was read but could not be indexed",
		}
	}

	out := documentOutcome{
		DocumentID: result.DocumentID,
		Filename:   ap.Filename,
		Success:    result.Success,
		Chunks:     len(result.Chunks),
		Method:     result.Metadata.ParsingMethod,
	}
	if result.Failure != nil {
		out.Error = result.Failure.Message
		out.Remediation = result.Failure.Remediation
	}
	return out
}

func ingestOnlyReply(docs []documentOutcome) string {
	ok := 0
	for _, d := range docs {
		if d.Success {
			ok++
		}
	}
	switch {
	case len(docs) == 0:
		return "Nothing to process."
	case ok == len(docs):
		return "Got it. Your documents are indexed; ask me anything about them."
	case ok > 0:
		return "Some documents were indexed; others could not be read. See the per-document details."
	default:
		return "I could not read the attached documents. See the per-document details."
	}
}

type knowledgeRequest struct {
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content"`
	Source  string   `json:"source,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// handleAddKnowledge authors curated content into the shared knowledge
// base, available to every user's retrieval queries.
func (s *Server) handleAddKnowledge(w http.ResponseWriter, r *http.Request) {
	if s.rt.Retrieval == nil {
		s.writeError(w, http.StatusServiceUnavailable, "retrieval is disabled")
		return
	}

	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		s.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	id, err := s.rt.Retrieval.AddEntry(r.Context(), rag.KnowledgeEntry{
		Title:   req.Title,
		Content: req.Content,
		Source:  req.Source,
		Tags:    req.Tags,
	})
	if err != nil {
		s.logger.Error("knowledge entry rejected", "error", err)
		s.writeError(w, http.StatusBadGateway, "knowledge entry could not be stored")
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tools": s.rt.Registry.ListTools(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
