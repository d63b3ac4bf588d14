package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// docxStrategy extracts text from Word documents.
type docxStrategy struct{}

func (d *docxStrategy) Name() string { return "docx_native" }

func (d *docxStrategy) CanHandle(att Attachment) bool {
	return hasExt(att, ".docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document")
}

var (
	docxParaEnd = regexp.MustCompile(`</w:p>`)
	docxTags    = regexp.MustCompile(`<[^>]+>`)
)

func (d *docxStrategy) Extract(ctx context.Context, att Attachment) (*extracted, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(att.Data), int64(len(att.Data)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	// GetContent returns the raw document XML; keep paragraph breaks and
	// drop the remaining markup.
	content = docxParaEnd.ReplaceAllString(content, "\n")
	content = docxTags.ReplaceAllString(content, "")

	return &extracted{
		text: content,
		extra: map[string]string{
			"type":       "Word Document",
			"paragraphs": fmt.Sprintf("%d", len(strings.Split(content, "\n"))),
		},
	}, nil
}

// xlsxStrategy extracts text from Excel spreadsheets, one labeled cell
// per line. Each sheet is capped so a dense workbook cannot blow up the
// prompt-facing text.
type xlsxStrategy struct{}

func (x *xlsxStrategy) Name() string { return "xlsx_native" }

func (x *xlsxStrategy) CanHandle(att Attachment) bool {
	return hasExt(att, ".xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (x *xlsxStrategy) Extract(ctx context.Context, att Attachment) (*extracted, error) {
	f, err := excelize.OpenReader(bytes.NewReader(att.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel document: %w", err)
	}
	defer f.Close()

	const maxCellsPerSheet = 1000

	var parts []string
	sheets := f.GetSheetList()

	for _, sheetName := range sheets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var sheetText strings.Builder
		sheetText.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheetName))

		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		cellCount := 0
		for rowIndex, row := range rows {
			if cellCount >= maxCellsPerSheet {
				sheetText.WriteString("... (truncated)\n")
				break
			}
			for colIndex, cell := range row {
				if cellCount >= maxCellsPerSheet {
					break
				}
				if text := strings.TrimSpace(cell); text != "" {
					ref := fmt.Sprintf("%s%d", columnLetter(colIndex), rowIndex+1)
					sheetText.WriteString(fmt.Sprintf("%s: %s\n", ref, text))
					cellCount++
				}
			}
		}

		if text := strings.TrimSpace(sheetText.String()); text != "" {
			parts = append(parts, text)
		}
	}

	return &extracted{
		text: strings.Join(parts, "\n\n"),
		extra: map[string]string{
			"type":   "Excel Spreadsheet",
			"sheets": fmt.Sprintf("%d", len(sheets)),
		},
	}, nil
}

// columnLetter converts a 0-based column index to an Excel column letter
// (A, B, ..., Z, AA, AB, ...).
func columnLetter(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// plainText accepts anything that decodes as UTF-8 text. It is the last
// rung of the cascade.
type plainText struct{}

func (p *plainText) Name() string { return "plain_text" }

func (p *plainText) CanHandle(att Attachment) bool {
	if hasExt(att, ".txt", "text/plain") || hasExt(att, ".md", "text/markdown") ||
		hasExt(att, ".csv", "text/csv") || strings.HasPrefix(att.MimeType, "text/") {
		return true
	}
	// Known binary formats never fall through here; their dedicated
	// strategies already had their shot.
	for _, ext := range []string{".pdf", ".docx", ".xlsx", ".doc", ".xls"} {
		if strings.EqualFold(filepath.Ext(att.Filename), ext) {
			return false
		}
	}
	if att.MimeType == "application/pdf" || strings.HasPrefix(att.MimeType, "application/vnd.") {
		return false
	}
	// Files with no recognizable extension get one last chance if the
	// bytes look like text.
	return utf8.Valid(att.Data) && !bytes.ContainsRune(att.Data, 0)
}

func (p *plainText) Extract(ctx context.Context, att Attachment) (*extracted, error) {
	if !utf8.Valid(att.Data) {
		return nil, fmt.Errorf("content is not valid UTF-8 text")
	}
	return &extracted{
		text:  string(att.Data),
		extra: map[string]string{"type": "Plain Text"},
	}, nil
}
