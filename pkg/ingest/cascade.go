package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
)

// extracted is the raw output of a single strategy before cleaning.
type extracted struct {
	text   string
	title  string
	author string
	pages  int
	extra  map[string]string
}

// strategy is one rung of the extraction cascade. CanHandle filters by
// file type; Extract either returns text or an error that advances the
// cascade to the next rung.
type strategy interface {
	Name() string
	CanHandle(att Attachment) bool
	Extract(ctx context.Context, att Attachment) (*extracted, error)
}

// Pipeline runs attachments through the extraction cascade, cleans the
// winning text, and splits it into overlapping chunks.
type Pipeline struct {
	cfg        config.IngestionConfig
	chunker    *Chunker
	strategies []strategy
	logger     *slog.Logger
}

func NewPipeline(cfg config.IngestionConfig) *Pipeline {
	strategies := []strategy{
		&strictPDF{},
		&lenientPDF{},
	}
	if cfg.EnableVisionFallback {
		strategies = append(strategies, &visionFallback{})
	}
	strategies = append(strategies,
		&docxStrategy{},
		&xlsxStrategy{},
		&plainText{},
	)

	return &Pipeline{
		cfg:        cfg,
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		strategies: strategies,
		logger:     slog.Default().With("component", "ingest"),
	}
}

// Ingest extracts, cleans, and chunks one attachment. It never returns an
// error: extraction failure is reported through Result.Failure so callers
// can relay the classified message and remediation hint.
func (p *Pipeline) Ingest(ctx context.Context, att Attachment) *Result {
	start := time.Now()

	docID := att.ID
	if docID == "" {
		docID = uuid.NewString()
	}

	var attempts []AttemptError
	for _, s := range p.strategies {
		if !s.CanHandle(att) {
			continue
		}
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, AttemptError{Strategy: s.Name(), Err: err.Error()})
			break
		}

		ext, err := s.Extract(ctx, att)
		if err != nil {
			p.logger.Debug("extraction strategy failed",
				"strategy", s.Name(), "filename", att.Filename, "error", err)
			attempts = append(attempts, AttemptError{Strategy: s.Name(), Err: err.Error()})
			continue
		}
		if strings.TrimSpace(ext.text) == "" {
			attempts = append(attempts, AttemptError{Strategy: s.Name(), Err: "no extractable text"})
			continue
		}

		return p.finish(docID, att, s.Name(), ext, attempts, start)
	}

	failure := classifyFailure(attempts)
	p.logger.Warn("document ingestion failed",
		"filename", att.Filename, "category", failure.Category, "attempts", len(attempts))

	return &Result{
		DocumentID: docID,
		Success:    false,
		Metadata:   Metadata{Filename: att.Filename},
		Failure:    failure,
		Elapsed:    time.Since(start),
	}
}

func (p *Pipeline) finish(docID string, att Attachment, method string, ext *extracted, attempts []AttemptError, start time.Time) *Result {
	text := CleanText(ext.text)

	truncated := false
	if p.cfg.MaxTextLength > 0 && len(text) > p.cfg.MaxTextLength {
		text = text[:p.cfg.MaxTextLength] + "\n[truncated]"
		truncated = true
	}

	title := ext.title
	if title == "" {
		title = filepath.Base(att.Filename)
	}

	meta := Metadata{
		Filename:      att.Filename,
		Title:         title,
		Author:        ext.author,
		Pages:         ext.pages,
		ParsingMethod: method,
		Extra:         ext.extra,
	}

	chunks := p.chunker.Split(docID, text)
	for i := range chunks {
		chunks[i].Metadata = map[string]any{
			"filename":       att.Filename,
			"title":          title,
			"parsing_method": method,
		}
	}
	if len(attempts) > 0 {
		p.logger.Info("extraction recovered after earlier failures",
			"filename", att.Filename, "strategy", method, "failed_attempts", len(attempts))
	}
	p.logger.Info("document ingested",
		"filename", att.Filename,
		"strategy", method,
		"chars", len(text),
		"chunks", len(chunks),
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		DocumentID: docID,
		Success:    true,
		Text:       text,
		Truncated:  truncated,
		Metadata:   meta,
		Chunks:     chunks,
		Elapsed:    time.Since(start),
	}
}

// hasExt reports whether the attachment looks like the given extension,
// checking the filename first and falling back to the MIME type.
func hasExt(att Attachment, ext string, mimes ...string) bool {
	if strings.EqualFold(filepath.Ext(att.Filename), ext) {
		return true
	}
	for _, m := range mimes {
		if strings.EqualFold(att.MimeType, m) {
			return true
		}
	}
	return false
}

// visionStubNotice stands in for OCR output until a multimodal model is
// wired into the fallback stage.
const visionStubNotice = "This document could not be parsed as text. It appears to be a scanned " +
	"or image-only file; optical recognition is not available in this build, so its contents " +
	"were not extracted."

// visionFallback is the slot for OCR of scanned documents. Extraction
// will be delegated to a multimodal model; until then the stage succeeds
// with a stub notice so the user learns why the content is missing.
type visionFallback struct{}

func (v *visionFallback) Name() string { return "vision_fallback" }

func (v *visionFallback) CanHandle(att Attachment) bool {
	return hasExt(att, ".pdf", "application/pdf")
}

func (v *visionFallback) Extract(ctx context.Context, att Attachment) (*extracted, error) {
	return &extracted{
		text:  visionStubNotice,
		extra: map[string]string{"vision": "stub"},
	}, nil
}
