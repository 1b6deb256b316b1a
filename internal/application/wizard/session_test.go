package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

type fakeAnalyzer struct {
	mu sync.Mutex

	result *compliance.Result
	err    error

	// when set, Analyze/GeneratePolicy block until released
	gate chan struct{}

	policyByControl map[string]string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, documentText string) (*compliance.Result, error) {
	if f.gate != nil {
		<-f.gate
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) GeneratePolicy(ctx context.Context, control, documentText string) (*compliance.GeneratedPolicy, error) {
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	content := "generated " + control
	f.mu.Lock()
	if f.policyByControl != nil {
		if c, ok := f.policyByControl[control]; ok {
			content = c
		}
	}
	f.mu.Unlock()
	return &compliance.GeneratedPolicy{Control: compliance.Control(control), Content: content}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func partialResult() *compliance.Result {
	return &compliance.Result{
		Covered: []compliance.Control{compliance.ControlDataEncryption},
		Missing: []compliance.Control{
			compliance.ControlAccessControl,
			compliance.ControlIncidentResponse,
			compliance.ControlLogging,
			compliance.ControlTraining,
		},
		Reasoning: map[compliance.Control]string{
			compliance.ControlDataEncryption: "covered",
		},
	}
}

func readySession(t *testing.T, svc Analyzer) *Session {
	t.Helper()
	s := NewSession(svc)
	if err := s.SetDocument(strings.Repeat("policy ", 800), "policies.pdf"); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}
	if err := s.Continue(); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	return s
}

func TestContinueRequiresDocument(t *testing.T) {
	s := NewSession(&fakeAnalyzer{})
	if err := s.Continue(); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestBackReturnsToUpload(t *testing.T) {
	s := readySession(t, &fakeAnalyzer{result: partialResult()})
	if err := s.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if s.Step() != StepUpload {
		t.Errorf("expected upload step, got %s", s.Step())
	}
	// document survives Back, unlike Reset
	if s.DocumentText() == "" {
		t.Error("expected document to survive Back")
	}
}

func TestAnalyzeHappyPath(t *testing.T) {
	s := readySession(t, &fakeAnalyzer{result: partialResult()})

	res, err := s.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if s.Step() != StepResults {
		t.Errorf("expected results step, got %s", s.Step())
	}
	if res.Score() != 20 {
		t.Errorf("expected score 20, got %d", res.Score())
	}
	if s.Score() != 20 {
		t.Errorf("expected session score 20, got %d", s.Score())
	}
}

func TestAnalyzeSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeAnalyzer{result: partialResult(), gate: gate}
	s := readySession(t, fake)

	done := make(chan error, 1)
	go func() {
		_, err := s.Analyze(context.Background())
		done <- err
	}()

	// wait until the first call marks itself in flight
	waitFor(t, func() bool { return s.IsAnalyzing() })

	if _, err := s.Analyze(context.Background()); !errors.Is(err, ErrAnalysisInFlight) {
		t.Fatalf("expected ErrAnalysisInFlight, got %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first analyze failed: %v", err)
	}
	if s.IsAnalyzing() {
		t.Error("busy flag not cleared after completion")
	}
}

func TestAnalyzeFailureAllowsRetry(t *testing.T) {
	fake := &fakeAnalyzer{err: errors.New("gateway down")}
	s := readySession(t, fake)

	if _, err := s.Analyze(context.Background()); err == nil {
		t.Fatal("expected analyze to fail")
	}
	if s.Step() != StepAnalyze {
		t.Errorf("expected to stay in analyze step, got %s", s.Step())
	}

	fake.err = nil
	fake.result = partialResult()
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if s.Step() != StepResults {
		t.Errorf("expected results step after retry, got %s", s.Step())
	}
}

func TestGeneratePolicyOnlyFromResults(t *testing.T) {
	s := readySession(t, &fakeAnalyzer{result: partialResult()})
	if _, err := s.GeneratePolicy(context.Background(), compliance.ControlAccessControl); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGeneratePolicyUpsertReplaces(t *testing.T) {
	fake := &fakeAnalyzer{
		result:          partialResult(),
		policyByControl: map[string]string{"Access Control": "first version"},
	}
	s := readySession(t, fake)
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if _, err := s.GeneratePolicy(context.Background(), compliance.ControlAccessControl); err != nil {
		t.Fatalf("GeneratePolicy: %v", err)
	}

	fake.mu.Lock()
	fake.policyByControl["Access Control"] = "second version"
	fake.mu.Unlock()

	if _, err := s.GeneratePolicy(context.Background(), compliance.ControlAccessControl); err != nil {
		t.Fatalf("GeneratePolicy: %v", err)
	}

	policies := s.Policies()
	if len(policies) != 1 {
		t.Fatalf("expected one policy entry, got %d", len(policies))
	}
	if policies[0].Content != "second version" {
		t.Errorf("expected last write to win, got %q", policies[0].Content)
	}
}

func TestGeneratePolicyConcurrentControls(t *testing.T) {
	gate := make(chan struct{})
	fake := &fakeAnalyzer{result: partialResult(), gate: gate}
	s := readySession(t, fake)

	fake.gate = nil
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	fake.gate = gate

	var wg sync.WaitGroup
	errs := make([]error, 2)
	controls := []compliance.Control{compliance.ControlDataEncryption, compliance.ControlAccessControl}
	for i, c := range controls {
		wg.Add(1)
		go func(i int, c compliance.Control) {
			defer wg.Done()
			_, errs[i] = s.GeneratePolicy(context.Background(), c)
		}(i, c)
	}

	// both should be marked in flight before release
	waitFor(t, func() bool { return s.IsGenerating(controls[0]) && s.IsGenerating(controls[1]) })

	// a second request for an in-flight control is refused
	if _, err := s.GeneratePolicy(context.Background(), controls[0]); !errors.Is(err, ErrGenerationInFlight) {
		t.Fatalf("expected ErrGenerationInFlight, got %v", err)
	}

	close(gate)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("generation %d failed: %v", i, err)
		}
	}
	if got := len(s.Policies()); got != 2 {
		t.Errorf("expected both policies stored, got %d", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	fake := &fakeAnalyzer{result: partialResult()}
	s := readySession(t, fake)
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := s.GeneratePolicy(context.Background(), compliance.ControlAccessControl); err != nil {
		t.Fatalf("GeneratePolicy: %v", err)
	}

	s.Reset()

	if s.Step() != StepUpload {
		t.Errorf("expected upload step, got %s", s.Step())
	}
	if s.DocumentText() != "" || s.FileName() != "" {
		t.Error("expected document fields cleared")
	}
	if s.Result() != nil {
		t.Error("expected result cleared")
	}
	if len(s.Policies()) != 0 {
		t.Error("expected policies cleared")
	}
}

func TestSnapshotCarriesState(t *testing.T) {
	fake := &fakeAnalyzer{result: partialResult()}
	s := readySession(t, fake)
	if _, err := s.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := s.GeneratePolicy(context.Background(), compliance.ControlAccessControl); err != nil {
		t.Fatalf("GeneratePolicy: %v", err)
	}

	snap := s.Snapshot()
	if snap.FileName != "policies.pdf" {
		t.Errorf("unexpected file name %q", snap.FileName)
	}
	if len(snap.Covered) != 1 || len(snap.Missing) != 4 {
		t.Errorf("unexpected verdict in snapshot: %v / %v", snap.Covered, snap.Missing)
	}
	if len(snap.GeneratedPolicies) != 1 {
		t.Errorf("expected one generated policy, got %d", len(snap.GeneratedPolicies))
	}
}
