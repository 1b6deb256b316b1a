package prompt

import (
	"fmt"
	"strings"

	"github.com/soc2kit/compliance-copilot/internal/domain/compliance"
)

// AnalysisSystem fixes the grading policy and output schema for the
// coverage check. The control list is enumerated from the shared domain
// set so prompt and parser cannot diverge.
func AnalysisSystem() string {
	var list strings.Builder
	for i, c := range compliance.Controls() {
		fmt.Fprintf(&list, "%d. %s\n", i+1, c)
	}

	return fmt.Sprintf(`You are a SOC2 compliance expert. Analyze the provided policy document and evaluate its coverage of the following SOC2 security controls:

%s
For each control, determine if the document adequately addresses it. A control is "covered" if the document contains specific policies, procedures, or requirements that address that control area. A control is "missing" if there is no mention or insufficient coverage.

You must respond with a valid JSON object in this exact format:
{
  "covered": ["list of covered control names"],
  "missing": ["list of missing control names"],
  "reasoning": {
    "Control Name": "Brief explanation of why it's covered or missing"
  }
}

Be strict in your assessment. Only mark a control as covered if there is clear, specific policy language addressing it.`, list.String())
}

// AnalysisUser wraps the (already truncated) document text.
func AnalysisUser(documentText string) string {
	return fmt.Sprintf("Please analyze the following policy document for SOC2 compliance:\n\n%s", documentText)
}
