package ingest

import "time"

// Attachment is a raw inbound document as received on the message API.
type Attachment struct {
	ID       string
	Filename string
	MimeType string
	Data     []byte
}

// Chunk is one indexed slice of an extracted document.
type Chunk struct {
	DocumentID string
	Index      int
	Content    string
	TokenCount int
	Metadata   map[string]any
}

// Result is the outcome of running an attachment through the pipeline.
// Exactly one of Chunks or Failure is populated.
type Result struct {
	DocumentID string
	Success    bool
	Text       string
	Truncated  bool
	Metadata   Metadata
	Chunks     []Chunk
	Failure    *Failure
	Elapsed    time.Duration
}

// Metadata describes the extracted document.
type Metadata struct {
	Filename      string
	Title         string
	Author        string
	Pages         int
	ParsingMethod string
	Extra         map[string]string
}

// FailureCategory classifies why no strategy could extract text.
type FailureCategory string

const (
	FailureCorrupt     FailureCategory = "corrupt"
	FailureEncrypted   FailureCategory = "password_protected"
	FailureUnsupported FailureCategory = "unsupported_format"
	FailureResource    FailureCategory = "resource_limit"
)

// Failure carries the classified error plus the per-strategy attempt trail.
type Failure struct {
	Category    FailureCategory
	Message     string
	Remediation string
	Attempts    []AttemptError
}

// AttemptError records a single strategy's error for diagnostics.
type AttemptError struct {
	Strategy string
	Err      string
}
