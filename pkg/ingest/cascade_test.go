package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"
)

func testPipeline(cfg config.IngestionConfig) *Pipeline {
	if cfg.MaxTextLength == 0 {
		cfg.MaxTextLength = 100000
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 200
	}
	return NewPipeline(cfg)
}

func TestPlainTextAttachment(t *testing.T) {
	p := testPipeline(config.IngestionConfig{})

	result := p.Ingest(context.Background(), Attachment{
		Filename: "notes.txt",
		MimeType: "text/plain",
		Data:     []byte("Quarterly revenue grew 12% over the prior period."),
	})

	require.True(t, result.Success)
	assert.Equal(t, "plain_text", result.Metadata.ParsingMethod)
	assert.Contains(t, result.Text, "Quarterly revenue")
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, result.DocumentID, result.Chunks[0].DocumentID)
	assert.Equal(t, "notes.txt", result.Chunks[0].Metadata["filename"])
}

func TestDocumentIDIsPreserved(t *testing.T) {
	p := testPipeline(config.IngestionConfig{})

	result := p.Ingest(context.Background(), Attachment{
		ID:       "doc-42",
		Filename: "a.txt",
		Data:     []byte("hello"),
	})

	assert.Equal(t, "doc-42", result.DocumentID)
}

func TestTruncationMarker(t *testing.T) {
	p := testPipeline(config.IngestionConfig{MaxTextLength: 50})

	result := p.Ingest(context.Background(), Attachment{
		Filename: "big.txt",
		Data:     []byte(strings.Repeat("abcdefghij ", 50)),
	})

	require.True(t, result.Success)
	assert.True(t, result.Truncated)
	assert.True(t, strings.HasSuffix(result.Text, "[truncated]"))
}

func TestCorruptPDFIsClassified(t *testing.T) {
	p := testPipeline(config.IngestionConfig{})

	result := p.Ingest(context.Background(), Attachment{
		Filename: "broken.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.7\nnot actually a pdf body\x00\x01\x02"),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureCorrupt, result.Failure.Category)
	assert.NotEmpty(t, result.Failure.Remediation)
	// Both PDF strategies were attempted before giving up.
	assert.GreaterOrEqual(t, len(result.Failure.Attempts), 2)
}

func TestBinaryGarbageIsUnsupported(t *testing.T) {
	p := testPipeline(config.IngestionConfig{})

	result := p.Ingest(context.Background(), Attachment{
		Filename: "blob.bin",
		Data:     []byte{0x00, 0xff, 0xfe, 0x00, 0x13, 0x37},
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Failure)
	assert.Equal(t, FailureUnsupported, result.Failure.Category)
}

func TestVisionFallbackIsGated(t *testing.T) {
	att := Attachment{
		Filename: "scan.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.7 garbage"),
	}

	// Disabled: the cascade exhausts the PDF parsers and fails.
	disabled := testPipeline(config.IngestionConfig{})
	resDisabled := disabled.Ingest(context.Background(), att)
	require.False(t, resDisabled.Success)
	assert.Equal(t, FailureCorrupt, resDisabled.Failure.Category)

	// Enabled: the fallback stage succeeds with the stub notice.
	enabled := testPipeline(config.IngestionConfig{EnableVisionFallback: true})
	resEnabled := enabled.Ingest(context.Background(), att)
	require.True(t, resEnabled.Success)
	assert.Equal(t, "vision_fallback", resEnabled.Metadata.ParsingMethod)
	assert.Contains(t, resEnabled.Text, "scanned")
	assert.Contains(t, resEnabled.Text, "optical recognition")
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		attempts []AttemptError
		want     FailureCategory
	}{
		{
			"password wins over corrupt",
			[]AttemptError{
				{Strategy: "pdf_strict", Err: "malformed stream"},
				{Strategy: "pdf_lenient", Err: "file is encrypted"},
			},
			FailureEncrypted,
		},
		{
			"unsupported version",
			[]AttemptError{{Strategy: "pdf_strict", Err: "unsupported version 2.3"}},
			FailureUnsupported,
		},
		{
			"resource limit",
			[]AttemptError{{Strategy: "pdf_strict", Err: "document too large to process"}},
			FailureResource,
		},
		{
			"default is corrupt",
			[]AttemptError{{Strategy: "pdf_strict", Err: "unexpected EOF"}},
			FailureCorrupt,
		},
		{
			"no strategies means unsupported",
			nil,
			FailureUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := classifyFailure(tt.attempts)
			assert.Equal(t, tt.want, f.Category)
			assert.NotEmpty(t, f.Remediation)
		})
	}
}

func TestCleanText(t *testing.T) {
	in := "Title\x00\n\n\n\nbody   text\t\twith   runs\r\nnext line   "
	out := CleanText(in)

	assert.NotContains(t, out, "\x00")
	assert.NotContains(t, out, "   ")
	assert.NotContains(t, out, "\n\n\n")
	assert.Contains(t, out, "body text with runs")
}

func TestCleanTextDropsPageFurniture(t *testing.T) {
	page := "ACME Corp Confidential\ncontent %d unique to this page\n"
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteString(strings.Replace(page, "%d", string(rune('a'+i)), 1))
	}

	out := CleanText(b.String())

	assert.Equal(t, 1, strings.Count(out, "ACME Corp Confidential"),
		"repeated header should survive only once")
	assert.Contains(t, out, "content a unique to this page")
	assert.Contains(t, out, "content e unique to this page")
}
