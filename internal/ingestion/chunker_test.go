package ingestion

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	text := "First sentence. Second one! Third?\n\nNew paragraph here"
	got := splitSentences(text)
	want := []string{"First sentence.", "Second one!", "Third?", "New paragraph here"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitEmptyInput(t *testing.T) {
	c := NewChunker(500, 100)
	if got := c.Split("   \n\n  "); got != nil {
		t.Errorf("whitespace input produced chunks: %v", got)
	}
}

func TestSplitRespectsSizeLimit(t *testing.T) {
	c := NewChunker(100, 20)
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a sentence. ")
	}
	chunks := c.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Errorf("chunk %d has %d chars, limit 100", i, len(chunk))
		}
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	c := NewChunker(60, 30)
	chunks := c.Split("Alpha sentence one. Beta sentence two. Gamma sentence three. Delta sentence four.")
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}
	// The second chunk starts with the last 30 characters of the first.
	tail := chunks[0][len(chunks[0])-30:]
	want := tail + " Delta sentence four."
	if chunks[1] != want {
		t.Errorf("chunk 1 = %q, want %q", chunks[1], want)
	}
}

func TestSplitOverlapIsCharacterTail(t *testing.T) {
	c := NewChunker(500, 100)
	sentence := strings.Repeat("word ", 29) + "stop."
	if len(sentence) != 150 {
		t.Fatalf("sentence is %d chars, want 150", len(sentence))
	}
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
	}
	chunks := c.Split(sb.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The overlap is the predecessor's trailing characters, even when every
	// sentence is longer than the overlap budget.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev[len(prev)-100:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not start with the last 100 chars of chunk %d:\n%q\nvs\n%q",
				i, i-1, chunks[i][:100], tail)
		}
	}
}

func TestSplitShortChunkCarriesNothing(t *testing.T) {
	c := NewChunker(200, 100)
	first := strings.Repeat("a", 79) + "."
	second := strings.Repeat("b", 149) + "."
	chunks := c.Split(first + " " + second)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %v", len(chunks), chunks)
	}
	// An 80-char chunk is within the 100-char overlap budget, so the next
	// chunk starts fresh.
	if chunks[0] != first || chunks[1] != second {
		t.Errorf("chunks = %q / %q, want %q / %q", chunks[0], chunks[1], first, second)
	}
}

func TestSplitHardSplitsOversizedSentence(t *testing.T) {
	c := NewChunker(50, 10)
	var sb strings.Builder
	for i := 0; i < 130; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	long := sb.String()
	chunks := c.Split(long)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3: %v", len(chunks), chunks)
	}
	// Each cut advances by Size-Overlap, so cuts carry a 10-char tail.
	want := []string{long[0:50], long[40:90], long[80:130]}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("ab"); got != 1 {
		t.Errorf("short text estimate = %d, want 1", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("estimate = %d, want 100", got)
	}
}
