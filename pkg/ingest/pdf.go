package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// strictPDF parses with the standard reader and fails the whole document
// on the first page that cannot be read. It produces the cleanest text
// when the file is well formed.
type strictPDF struct{}

func (s *strictPDF) Name() string { return "pdf_strict" }

func (s *strictPDF) CanHandle(att Attachment) bool {
	return hasExt(att, ".pdf", "application/pdf")
}

func (s *strictPDF) Extract(ctx context.Context, att Attachment) (res *extracted, err error) {
	defer recoverParse(&res, &err)

	reader, err := pdf.NewReader(bytes.NewReader(att.Data), int64(len(att.Data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return readPages(ctx, reader, false)
}

// lenientPDF retries with the encrypted-aware reader and an empty password,
// then tolerates per-page extraction errors. Slightly damaged files that
// defeat the strict pass often still yield most of their text here.
type lenientPDF struct{}

func (l *lenientPDF) Name() string { return "pdf_lenient" }

func (l *lenientPDF) CanHandle(att Attachment) bool {
	return hasExt(att, ".pdf", "application/pdf")
}

func (l *lenientPDF) Extract(ctx context.Context, att Attachment) (res *extracted, err error) {
	defer recoverParse(&res, &err)

	reader, err := pdf.NewReaderEncrypted(bytes.NewReader(att.Data), int64(len(att.Data)), func() string {
		return ""
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return readPages(ctx, reader, true)
}

// recoverParse converts pdf package panics on malformed files into
// ordinary extraction errors so the cascade can continue.
func recoverParse(res **extracted, err *error) {
	if r := recover(); r != nil {
		*res = nil
		*err = fmt.Errorf("failed to parse PDF: %v", r)
	}
}

func readPages(ctx context.Context, reader *pdf.Reader, lenient bool) (*extracted, error) {
	var parts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			if !lenient {
				return nil, fmt.Errorf("page %d extraction failed: %w", pageNum, pageErr)
			}
			continue
		}

		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	out := &extracted{
		text:  strings.Join(parts, "\n\n"),
		pages: totalPages,
		extra: map[string]string{"type": "PDF Document"},
	}
	if t := trailerString(reader, "Title"); t != "" {
		out.title = t
	}
	if a := trailerString(reader, "Author"); a != "" {
		out.author = a
	}
	return out, nil
}

func trailerString(reader *pdf.Reader, key string) (val string) {
	defer func() {
		if recover() != nil {
			val = ""
		}
	}()
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return ""
	}
	v := info.Key(key)
	if v.Kind() != pdf.String {
		return ""
	}
	return v.Text()
}
