package compliance

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/soc2kit/compliance-copilot/internal/domain/ai"
	"github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

const (
	// MinDocumentChars is the caller-side floor on extracted text,
	// boundary inclusive.
	MinDocumentChars = 50

	// maxAnalysisChars caps the document slice forwarded for analysis.
	maxAnalysisChars = 30000

	// maxContextChars caps the document slice included as context when
	// generating a policy.
	maxContextChars = 5000
)

type Service struct {
	AI ai.Client
}

func NewService(client ai.Client) *Service {
	return &Service{AI: client}
}

// Analyze checks documentText against the fixed control set and returns
// the parsed coverage verdict. Replies that do not partition the control
// set are rejected as upstream format errors rather than trusted.
func (s *Service) Analyze(ctx context.Context, documentText string) (*compliance.Result, error) {
	if utf8.RuneCountInString(documentText) < MinDocumentChars {
		return nil, fmt.Errorf("%w: document text is required and must be at least %d characters", compliance.ErrValidation, MinDocumentChars)
	}
	documentText = truncateRunes(documentText, maxAnalysisChars)

	reply, err := s.AI.AnalyzeCompliance(ctx, documentText)
	if err != nil {
		return nil, err
	}

	res, err := compliance.ParseReply(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrUpstreamFormat, err)
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrUpstreamFormat, err)
	}
	return res, nil
}

// GeneratePolicy produces a full policy document for one control. When
// documentText is present the first part of it is passed along as
// context so the generated policy can echo the organization's tone.
func (s *Service) GeneratePolicy(ctx context.Context, control, documentText string) (*compliance.GeneratedPolicy, error) {
	if strings.TrimSpace(control) == "" {
		return nil, fmt.Errorf("%w: control name is required", compliance.ErrValidation)
	}
	documentText = truncateRunes(documentText, maxContextChars)

	reply, err := s.AI.GeneratePolicy(ctx, control, documentText)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, fmt.Errorf("%w: empty policy reply", ai.ErrUpstreamFormat)
	}

	return &compliance.GeneratedPolicy{
		Control: compliance.Control(control),
		Content: reply,
	}, nil
}

// truncateRunes cuts s to at most n runes. Limits are measured in
// characters, not bytes, so multi-byte text is never split mid-rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
