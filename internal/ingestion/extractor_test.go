package ingestion

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	got, err := ExtractText([]byte("  hello world  "), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestExtractMimeParametersIgnored(t *testing.T) {
	got, err := ExtractText([]byte("content"), "text/markdown; charset=utf-8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractEmptyFileFails(t *testing.T) {
	_, err := ExtractText([]byte("   "), "text/plain")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("want ExtractionError, got %v", err)
	}
}

func TestExtractInvalidUTF8Fails(t *testing.T) {
	_, err := ExtractText([]byte{0xff, 0xfe, 0x00}, "text/plain")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("want ExtractionError, got %v", err)
	}
}

func TestExtractUnsupportedMime(t *testing.T) {
	_, err := ExtractText([]byte("data"), "application/zip")
	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("want ExtractionError, got %v", err)
	}
	if !strings.Contains(extErr.Error(), "application/zip") {
		t.Errorf("error %q does not name the mime type", extErr.Error())
	}
}

func TestExtractHTMLStripsChrome(t *testing.T) {
	page := `<html><head><style>body{color:red}</style><script>alert(1)</script></head>
<body><nav>Menu</nav><header>Site</header>
<p>Actual content here.</p>
<footer>Copyright</footer></body></html>`
	got, err := ExtractText([]byte(page), "text/html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Actual content here.") {
		t.Errorf("content lost: %q", got)
	}
	for _, banned := range []string{"Menu", "Site", "Copyright", "alert", "color:red"} {
		if strings.Contains(got, banned) {
			t.Errorf("stripped element leaked: %q in %q", banned, got)
		}
	}
}

func TestDocxParagraphsBlankLineSeparated(t *testing.T) {
	content := `<w:document><w:body>` +
		`<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	got := strings.TrimSpace(docxContentToText(content))
	want := "First paragraph.\n\nSecond paragraph."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSupportedMimeType(t *testing.T) {
	for _, mt := range []string{"application/pdf", "text/html", "text/csv", "application/json"} {
		if !SupportedMimeType(mt) {
			t.Errorf("%s should be supported", mt)
		}
	}
	if SupportedMimeType("image/png") {
		t.Errorf("image/png should not be supported")
	}
}
