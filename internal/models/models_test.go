package models

import "testing"

func TestValidateRejectsMissingTitle(t *testing.T) {
	m := DocumentMetadata{Title: "   "}
	if err := m.Validate(); err == nil {
		t.Error("blank title passed validation")
	}
}

func TestValidateNormalizesDocumentType(t *testing.T) {
	m := DocumentMetadata{Title: "Doc", DocumentType: " Whitepaper "}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DocumentType != "other" {
		t.Errorf("document type = %q, want other", m.DocumentType)
	}
}

func TestValidateTopicBounds(t *testing.T) {
	m := DocumentMetadata{Title: "Doc"}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Topics) != 1 || m.Topics[0] != "general" {
		t.Errorf("empty topics = %v, want [general]", m.Topics)
	}

	m = DocumentMetadata{
		Title:  "Doc",
		Topics: []string{"a", "b", "c", "d", "e", "f", "g"},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Topics) != 5 {
		t.Errorf("got %d topics, want the first 5", len(m.Topics))
	}
	if m.Topics[4] != "e" {
		t.Errorf("topics truncated wrong: %v", m.Topics)
	}
}

func TestValidateDefaults(t *testing.T) {
	m := DocumentMetadata{Title: "Doc"}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Entities == nil {
		t.Error("entities not initialised")
	}
	if m.Language != "en" {
		t.Errorf("language = %q, want en", m.Language)
	}
}
