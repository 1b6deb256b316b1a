package prompt

import "fmt"

// PolicySystem fixes the required structure of a generated policy.
func PolicySystem() string {
	return `You are a SOC2 compliance expert and technical writer. Generate a comprehensive, enterprise-grade security policy for the specified control area.

The policy should:
1. Be professional and suitable for a corporate environment
2. Follow SOC2 Type II requirements
3. Include clear sections: Purpose, Scope, Policy Statement, Procedures, Responsibilities, and Compliance
4. Be specific and actionable, not vague
5. Reference industry standards where appropriate (NIST, ISO 27001, etc.)
6. Be ready for immediate adoption by an organization

Format the policy in a clean, readable structure with clear headings and bullet points where appropriate.`
}

// PolicyUser selects between the contextual and generic templates
// depending on whether document text is present.
func PolicyUser(control, documentText string) string {
	if documentText != "" {
		return fmt.Sprintf(`Generate a comprehensive SOC2-compliant policy for %q.

Here is the organization's existing policy document for context (use this to match their tone and terminology):
%s

Create a policy that would complement their existing documentation.`, control, documentText)
	}
	return fmt.Sprintf(`Generate a comprehensive SOC2-compliant policy for %q.

Create a professional, enterprise-grade policy that an organization could adopt immediately.`, control)
}
