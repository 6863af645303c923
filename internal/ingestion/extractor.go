package ingestion

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/net/html"
)

// ExtractionError marks a failure to pull text out of an uploaded file.
type ExtractionError struct {
	MimeType string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.MimeType, e.Reason)
}

const (
	mimePDF      = "application/pdf"
	mimeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeHTML     = "text/html"
	mimePlain    = "text/plain"
	mimeMarkdown = "text/markdown"
	mimeCSV      = "text/csv"
	mimeJSON     = "application/json"
)

// SupportedMimeType reports whether the extractor accepts the type.
func SupportedMimeType(mimeType string) bool {
	switch normalizeMime(mimeType) {
	case mimePDF, mimeDocx, mimeHTML, mimePlain, mimeMarkdown, mimeCSV, mimeJSON:
		return true
	}
	return false
}

// ExtractText dispatches on mime type and returns the plain text content.
// The mime set is closed; anything else is an ExtractionError.
func ExtractText(data []byte, mimeType string) (string, error) {
	switch normalizeMime(mimeType) {
	case mimePDF:
		return extractPDF(data)
	case mimeDocx:
		return extractDocx(data)
	case mimeHTML:
		return extractHTML(data)
	case mimePlain, mimeMarkdown, mimeCSV, mimeJSON:
		return extractPlainText(data, mimeType)
	default:
		return "", &ExtractionError{MimeType: mimeType, Reason: "unsupported mime type"}
	}
}

// normalizeMime drops parameters such as "; charset=utf-8".
func normalizeMime(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{MimeType: mimePDF, Reason: err.Error()}
	}
	var pages []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", &ExtractionError{MimeType: mimePDF, Reason: "no extractable text"}
	}
	// Pages join on a blank line so the chunker sees a paragraph boundary.
	return strings.Join(pages, "\n\n"), nil
}

func extractDocx(data []byte) (string, error) {
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{MimeType: mimeDocx, Reason: err.Error()}
	}
	defer reader.Close()
	content := reader.Editable().GetContent()
	text := strings.TrimSpace(docxContentToText(content))
	if text == "" {
		return "", &ExtractionError{MimeType: mimeDocx, Reason: "no extractable text"}
	}
	return text, nil
}

// docxContentToText strips the WordprocessingML markup. Paragraphs become
// blank-line separated blocks, matching the other extractors.
func docxContentToText(content string) string {
	var sb strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.TextToken:
			sb.Write(tokenizer.Text())
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "w:p" {
				sb.WriteString("\n\n")
			}
		}
	}
	return sb.String()
}

// strippedTags are HTML subtrees with no retrievable content.
var strippedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "header": true,
	"footer": true, "aside": true, "iframe": true, "noscript": true,
}

func extractHTML(data []byte) (string, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))
	var sb strings.Builder
	depth := 0 // nesting depth inside stripped subtrees
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if strippedTags[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if strippedTags[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 {
				if text := strings.TrimSpace(string(tokenizer.Text())); text != "" {
					sb.WriteString(text)
					sb.WriteString("\n")
				}
			}
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", &ExtractionError{MimeType: mimeHTML, Reason: "no extractable text"}
	}
	return out, nil
}

func extractPlainText(data []byte, mimeType string) (string, error) {
	if !utf8.Valid(data) {
		return "", &ExtractionError{MimeType: mimeType, Reason: "content is not valid UTF-8"}
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", &ExtractionError{MimeType: mimeType, Reason: "file is empty"}
	}
	return text, nil
}
