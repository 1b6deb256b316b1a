package extractor

import (
	"errors"
	"testing"

	"github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

func TestExtractRejectsNonPDF(t *testing.T) {
	cases := []struct {
		name      string
		mediaType string
	}{
		{"policies.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"policies.txt", "text/plain"},
		{"policies.docx", ""},
	}
	for _, c := range cases {
		_, err := Extract(c.name, c.mediaType, []byte("irrelevant"))
		if !errors.Is(err, compliance.ErrUnsupportedType) {
			t.Errorf("%s (%s): expected ErrUnsupportedType, got %v", c.name, c.mediaType, err)
		}
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	_, err := Extract("broken.pdf", "application/pdf", []byte("this is not a pdf"))
	if !errors.Is(err, compliance.ErrExtraction) {
		t.Fatalf("expected ErrExtraction, got %v", err)
	}
}

func TestExtractExtensionFallback(t *testing.T) {
	// no declared type but a .pdf name: the type gate passes and the
	// parse itself decides
	_, err := Extract("report.pdf", "", []byte("junk"))
	if errors.Is(err, compliance.ErrUnsupportedType) {
		t.Fatal("extension fallback should accept .pdf with no media type")
	}
	if !errors.Is(err, compliance.ErrExtraction) {
		t.Fatalf("expected ErrExtraction for junk bytes, got %v", err)
	}
}

func TestIsPDFParameterizedMediaType(t *testing.T) {
	if !isPDF("a.pdf", "application/pdf; charset=binary") {
		t.Error("media type parameters should be ignored")
	}
	if isPDF("a.docx", "application/msword") {
		t.Error("non-pdf media type must be rejected")
	}
	if !isPDF("a.PDF", "application/octet-stream") {
		t.Error("octet-stream with .pdf extension should pass the gate")
	}
}
