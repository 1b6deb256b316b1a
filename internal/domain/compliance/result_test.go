package compliance

import (
	"strings"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	obj, ok := ExtractJSONObject(`Sure, here is the result: {"covered":[]} hope it helps`)
	if !ok {
		t.Fatal("expected to find a JSON object")
	}
	if obj != `{"covered":[]}` {
		t.Errorf("unexpected object: %s", obj)
	}

	if _, ok := ExtractJSONObject("no braces here"); ok {
		t.Error("expected no match for brace-free text")
	}

	if _, ok := ExtractJSONObject("} backwards {"); ok {
		t.Error("expected no match when last } precedes first {")
	}
}

func TestExtractJSONObjectGreedySpan(t *testing.T) {
	// A brace-delimited aside before the payload widens the span to
	// include both, producing an unparseable blob. This mirrors the
	// upstream contract and must not be silently hardened.
	reply := `As requested {an aside} here you go: {"covered":[],"missing":[],"reasoning":{}}`

	obj, ok := ExtractJSONObject(reply)
	if !ok {
		t.Fatal("expected a span")
	}
	if !strings.HasPrefix(obj, "{an aside}") {
		t.Errorf("expected greedy span starting at the aside, got %s", obj)
	}
	if _, err := ParseReply(reply); err == nil {
		t.Error("expected ParseReply to fail on the widened span")
	}
}

func TestParseReply(t *testing.T) {
	reply := `Here is my assessment:
{"covered":["Data Encryption"],"missing":["Access Control","Incident Response","Logging and Monitoring","Employee Security Training"],"reasoning":{"Data Encryption":"Section 4 covers TLS and at-rest encryption."}}
Let me know if you need anything else.`

	res, err := ParseReply(reply)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if len(res.Covered) != 1 || res.Covered[0] != ControlDataEncryption {
		t.Errorf("unexpected covered: %v", res.Covered)
	}
	if len(res.Missing) != 4 {
		t.Errorf("expected 4 missing, got %d", len(res.Missing))
	}
	if res.Reasoning[ControlDataEncryption] == "" {
		t.Error("expected reasoning for Data Encryption")
	}
}

func TestParseReplyMissingKeys(t *testing.T) {
	cases := []string{
		`{"covered":[],"missing":[]}`,
		`{"covered":[],"reasoning":{}}`,
		`{"missing":[],"reasoning":{}}`,
	}
	for _, c := range cases {
		if _, err := ParseReply(c); err == nil {
			t.Errorf("expected error for %s", c)
		}
	}
}

func TestParseReplyNotJSON(t *testing.T) {
	if _, err := ParseReply("I could not analyze the document, sorry."); err == nil {
		t.Error("expected error for prose-only reply")
	}
}

func TestResultValidatePartition(t *testing.T) {
	valid := &Result{
		Covered: []Control{ControlDataEncryption},
		Missing: []Control{ControlAccessControl, ControlIncidentResponse, ControlLogging, ControlTraining},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid partition, got %v", err)
	}

	omitted := &Result{
		Covered: []Control{ControlDataEncryption},
		Missing: []Control{ControlAccessControl, ControlIncidentResponse, ControlLogging},
	}
	if err := omitted.Validate(); err == nil {
		t.Error("expected error when a control is omitted")
	}

	duplicated := &Result{
		Covered: []Control{ControlDataEncryption},
		Missing: []Control{ControlDataEncryption, ControlAccessControl, ControlIncidentResponse, ControlLogging, ControlTraining},
	}
	if err := duplicated.Validate(); err == nil {
		t.Error("expected error when a control appears in both sets")
	}

	unknown := &Result{
		Covered: []Control{"Physical Security"},
		Missing: []Control{ControlAccessControl, ControlDataEncryption, ControlIncidentResponse, ControlLogging, ControlTraining},
	}
	if err := unknown.Validate(); err == nil {
		t.Error("expected error for an unknown control name")
	}
}
