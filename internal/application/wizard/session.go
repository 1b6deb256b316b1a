package wizard

import (
	"context"
	"errors"
	"sync"

	"github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

// Step enum
type Step string

const (
	StepUpload  Step = "upload"
	StepAnalyze Step = "analyze"
	StepResults Step = "results"
)

var (
	ErrNoDocument         = errors.New("no document text set")
	ErrInvalidTransition  = errors.New("operation not valid in current step")
	ErrAnalysisInFlight   = errors.New("analysis already in progress")
	ErrGenerationInFlight = errors.New("generation already in progress for this control")
)

// Analyzer is the service surface the session drives. Satisfied by
// *compliance.Service from the application layer.
type Analyzer interface {
	Analyze(ctx context.Context, documentText string) (*compliance.Result, error)
	GeneratePolicy(ctx context.Context, control, documentText string) (*compliance.GeneratedPolicy, error)
}

// Session is the single source of truth for one wizard instance: the
// linear Upload -> Analyze -> Results flow with its document text,
// verdict, generated policies and busy flags. Session state never
// crosses instances.
type Session struct {
	mu sync.Mutex

	svc Analyzer

	step         Step
	documentText string
	fileName     string
	result       *compliance.Result
	policies     []compliance.GeneratedPolicy
	analyzing    bool
	generating   map[compliance.Control]bool
}

func NewSession(svc Analyzer) *Session {
	return &Session{
		svc:        svc,
		step:       StepUpload,
		generating: make(map[compliance.Control]bool),
	}
}

// SetDocument records the extracted text and file name. Valid only in
// the upload step.
func (s *Session) SetDocument(text, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepUpload {
		return ErrInvalidTransition
	}
	s.documentText = text
	s.fileName = fileName
	return nil
}

// RemoveDocument clears the current document while staying in upload.
func (s *Session) RemoveDocument() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepUpload {
		return ErrInvalidTransition
	}
	s.documentText = ""
	s.fileName = ""
	return nil
}

// Continue moves Upload -> Analyze; requires a non-empty document.
func (s *Session) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepUpload {
		return ErrInvalidTransition
	}
	if s.documentText == "" {
		return ErrNoDocument
	}
	s.step = StepAnalyze
	return nil
}

// Back moves Analyze -> Upload.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepAnalyze {
		return ErrInvalidTransition
	}
	s.step = StepUpload
	return nil
}

// Analyze invokes the analysis service with the stored document text.
// At most one analysis is in flight per session; on failure the session
// stays in the analyze step so the user may retry.
func (s *Session) Analyze(ctx context.Context) (*compliance.Result, error) {
	s.mu.Lock()
	if s.step != StepAnalyze {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if s.analyzing {
		s.mu.Unlock()
		return nil, ErrAnalysisInFlight
	}
	s.analyzing = true
	text := s.documentText
	s.mu.Unlock()

	res, err := s.svc.Analyze(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyzing = false
	if err != nil {
		return nil, err
	}
	s.result = res
	s.step = StepResults
	return res, nil
}

// GeneratePolicy invokes policy generation for one control. Valid only
// from the results step. Generations for different controls may
// overlap; a repeated completion for the same control replaces the
// stored policy (last-completion-wins).
func (s *Session) GeneratePolicy(ctx context.Context, control compliance.Control) (*compliance.GeneratedPolicy, error) {
	s.mu.Lock()
	if s.step != StepResults {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if s.generating[control] {
		s.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	s.generating[control] = true
	text := s.documentText
	s.mu.Unlock()

	policy, err := s.svc.GeneratePolicy(ctx, string(control), text)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.generating, control)
	if err != nil {
		return nil, err
	}
	s.upsertPolicy(*policy)
	return policy, nil
}

// upsertPolicy replaces the existing entry for the control or appends.
// Caller holds the lock.
func (s *Session) upsertPolicy(p compliance.GeneratedPolicy) {
	for i := range s.policies {
		if s.policies[i].Control == p.Control {
			s.policies[i] = p
			return
		}
	}
	s.policies = append(s.policies, p)
}

// Reset clears all session fields and returns to upload.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = StepUpload
	s.documentText = ""
	s.fileName = ""
	s.result = nil
	s.policies = nil
	s.analyzing = false
	s.generating = make(map[compliance.Control]bool)
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) DocumentText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentText
}

func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

func (s *Session) Result() *compliance.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Policies returns a copy of the generated policy list.
func (s *Session) Policies() []compliance.GeneratedPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]compliance.GeneratedPolicy, len(s.policies))
	copy(out, s.policies)
	return out
}

func (s *Session) IsAnalyzing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzing
}

func (s *Session) IsGenerating(control compliance.Control) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating[control]
}

// Score returns the compliance percentage for the current result, or 0
// when no analysis has completed.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return 0
	}
	return s.result.Score()
}

// Snapshot builds a persistable record from the current session state.
// ID, owner and creation time are filled in by the caller.
func (s *Session) Snapshot() *compliance.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &compliance.AnalysisRecord{
		FileName:     s.fileName,
		DocumentText: s.documentText,
	}
	if s.result != nil {
		rec.Covered = append([]compliance.Control(nil), s.result.Covered...)
		rec.Missing = append([]compliance.Control(nil), s.result.Missing...)
		rec.Reasoning = make(map[compliance.Control]string, len(s.result.Reasoning))
		for k, v := range s.result.Reasoning {
			rec.Reasoning[k] = v
		}
	}
	rec.GeneratedPolicies = append([]compliance.GeneratedPolicy(nil), s.policies...)
	return rec
}
