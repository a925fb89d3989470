// Package extract turns uploaded file bytes into per-page text. It is the
// text-extraction collaborator in front of the retrieval core: PDFs keep
// their page structure, spreadsheets map one sheet per page, everything
// else lands on a single page.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"docqa/internal/models"
)

var (
	ErrUnsupportedFileType = fmt.Errorf("%w: unsupported file type", models.ErrUnsupportedInput)

	// ErrOCRUnavailable marks image uploads: extracting their text needs an
	// OCR engine, which is not bundled.
	ErrOCRUnavailable = fmt.Errorf("%w: ocr unavailable", models.ErrUnsupportedInput)
)

// Meta carries per-page character counts for diagnostics.
type Meta map[string]int

// FromBytes extracts text keyed by page label from an uploaded file.
func FromBytes(filename string, data []byte) (map[string]string, Meta, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return fromPDF(data)
	case ".docx":
		return fromDOCX(data)
	case ".pptx":
		return fromPPTX(data)
	case ".xlsx":
		return fromXLSX(data)
	case ".ods":
		return fromODS(data)
	case ".txt":
		return singlePage(string(data))
	case ".md":
		return singlePage(markdownToText(data))
	case ".png", ".jpg", ".jpeg":
		return nil, nil, ErrOCRUnavailable
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filename))
	}
}

func fromPDF(data []byte) (map[string]string, Meta, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read pdf: %v", models.ErrUnsupportedInput, err)
	}
	pages := map[string]string{}
	meta := Meta{}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: extract pdf page %d: %v", models.ErrUnsupportedInput, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		label := fmt.Sprintf("page_%d", i)
		pages[label] = text
		meta[label] = len(text)
	}
	return pages, meta, nil
}

func fromDOCX(data []byte) (map[string]string, Meta, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read docx: %v", models.ErrUnsupportedInput, err)
	}
	defer r.Close()
	text := scrapeXMLTags(r.Editable().GetContent(), "<w:t")
	return singlePage(text)
}

func fromPPTX(data []byte) (map[string]string, Meta, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read pptx: %v", models.ErrUnsupportedInput, err)
	}
	pages := map[string]string{}
	meta := Meta{}
	slide := 0
	for _, file := range zr.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		text := scrapeXMLTags(string(raw), "<a:t")
		if strings.TrimSpace(text) == "" {
			continue
		}
		slide++
		label := fmt.Sprintf("slide_%d", slide)
		pages[label] = text
		meta[label] = len(text)
	}
	return pages, meta, nil
}

func fromXLSX(data []byte) (map[string]string, Meta, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read xlsx: %v", models.ErrUnsupportedInput, err)
	}
	pages := map[string]string{}
	meta := Meta{}
	for i, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		if strings.TrimSpace(text.String()) == "" {
			continue
		}
		label := fmt.Sprintf("sheet_%d", i+1)
		pages[label] = text.String()
		meta[label] = text.Len()
	}
	return pages, meta, nil
}

func fromODS(data []byte) (map[string]string, Meta, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read ods: %v", models.ErrUnsupportedInput, err)
	}
	defer f.Close()
	pages := map[string]string{}
	meta := Meta{}
	for i, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		if strings.TrimSpace(text.String()) == "" {
			continue
		}
		label := fmt.Sprintf("sheet_%d", i+1)
		pages[label] = text.String()
		meta[label] = text.Len()
	}
	return pages, meta, nil
}

func singlePage(text string) (map[string]string, Meta, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]string{}, Meta{}, nil
	}
	return map[string]string{"page_1": text}, Meta{"page_1": len(text)}, nil
}

// scrapeXMLTags pulls the character data out of repeated tags like <w:t>
// or <a:t>, which is where OOXML keeps visible text.
func scrapeXMLTags(content, openTag string) string {
	var text strings.Builder
	rest := content
	for {
		start := strings.Index(rest, openTag)
		if start < 0 {
			break
		}
		rest = rest[start+len(openTag):]
		// Only full tag matches: "<w:t" must not swallow "<w:tbl".
		if rest != "" && rest[0] != '>' && rest[0] != ' ' && rest[0] != '/' {
			continue
		}
		close := strings.IndexByte(rest, '>')
		if close < 0 {
			break
		}
		if close > 0 && rest[close-1] == '/' {
			rest = rest[close+1:]
			continue
		}
		rest = rest[close+1:]
		end := strings.IndexByte(rest, '<')
		if end < 0 {
			break
		}
		text.WriteString(rest[:end])
		text.WriteString(" ")
		rest = rest[end:]
	}
	return text.String()
}
