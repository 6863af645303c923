package ingestion

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"docuchat/internal/llm"
	"docuchat/internal/models"
	"docuchat/pkg/logger"
)

const extractionSystemPrompt = `You are a metadata extraction assistant. Analyze the provided document text and extract structured metadata.

Return ONLY a JSON object with these fields:
- "title": string — the document title (infer from content/filename if not explicit)
- "document_type": string — one of: "article", "report", "tutorial", "notes", "email", "code", "data", "other"
- "topics": array of strings — 3-5 main topics covered in the document
- "entities": array of strings — key named entities (people, organizations, products, technologies)
- "language": string — ISO 639-1 language code (e.g. "en", "de", "fr")
- "summary": string — 2-3 sentence summary of the document

Return ONLY valid JSON, no markdown formatting, no explanation.`

const metadataExcerptLimit = 4000

// MetadataExtractor derives document metadata with the chat model. Any
// failure falls back to deterministic minimal metadata, so ingestion never
// stops here.
type MetadataExtractor struct {
	provider llm.Provider
	log      *logger.Logger
}

func NewMetadataExtractor(provider llm.Provider) *MetadataExtractor {
	return &MetadataExtractor{
		provider: provider,
		log:      logger.New("ingestion.metadata"),
	}
}

// Extract asks the model for metadata over the first part of the text.
func (e *MetadataExtractor) Extract(ctx context.Context, text, filename string) models.DocumentMetadata {
	excerpt := text
	if len(excerpt) > metadataExcerptLimit {
		excerpt = excerpt[:metadataExcerptLimit]
	}
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: extractionSystemPrompt},
		{Role: llm.RoleUser, Content: "Filename: " + filename + "\n\nDocument text:\n" + excerpt},
	}
	raw, err := e.provider.ChatCompletion(ctx, messages, llm.Options{Temperature: 0.1, MaxTokens: 512})
	if err != nil {
		e.log.WithError(err).WithField("filename", filename).Warn("metadata extraction failed, using fallback")
		return models.FallbackMetadata(filename)
	}

	var meta models.DocumentMetadata
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &meta); err != nil {
		e.log.WithError(err).WithField("filename", filename).Warn("metadata response is not valid JSON, using fallback")
		return models.FallbackMetadata(filename)
	}
	if err := meta.Validate(); err != nil {
		e.log.WithError(err).WithField("filename", filename).Warn("metadata response is invalid, using fallback")
		return models.FallbackMetadata(filename)
	}
	e.log.WithField("filename", filename).WithField("document_type", meta.DocumentType).Debug("extracted metadata")
	return meta
}

var (
	fenceOpenRe  = regexp.MustCompile("^```(?:json)?\\s*\n?")
	fenceCloseRe = regexp.MustCompile("\n?```\\s*$")
)

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = fenceOpenRe.ReplaceAllString(text, "")
	text = fenceCloseRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
