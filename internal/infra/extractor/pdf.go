package extractor

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

// MediaTypePDF is the only accepted upload media type.
const MediaTypePDF = "application/pdf"

// Extract pulls plain text out of an uploaded PDF. Page texts are
// concatenated in page order separated by a blank line, then trimmed.
// Non-PDF uploads fail with compliance.ErrUnsupportedType; parse
// failures wrap compliance.ErrExtraction. Minimum-length policy is the
// caller's concern, not the extractor's.
func Extract(fileName, mediaType string, data []byte) (string, error) {
	if !isPDF(fileName, mediaType) {
		return "", fmt.Errorf("%w: got %q", compliance.ErrUnsupportedType, mediaType)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", compliance.ErrExtraction, err)
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages, keep the rest
			continue
		}
		pages = append(pages, text)
	}

	extracted := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if extracted == "" {
		return "", fmt.Errorf("%w: no text could be extracted", compliance.ErrExtraction)
	}
	return extracted, nil
}

// isPDF accepts the declared media type, falling back to the file
// extension when the browser sent none.
func isPDF(fileName, mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == MediaTypePDF {
		return true
	}
	if mt == "" || mt == "application/octet-stream" {
		return strings.ToLower(filepath.Ext(fileName)) == ".pdf"
	}
	return false
}
