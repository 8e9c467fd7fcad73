package guardrail

import (
	"fmt"
	"regexp"
)

// Patterns for personal data. Shared by the privacy check (reject) and the
// sanitizer (redact).
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)
)

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"email", emailPattern},
	{"government_id", ssnPattern},
	{"card_number", cardPattern},
}

// PrivacyCheck rejects responses carrying personal data unless explicitly
// permitted. The sanitizer still redacts permitted matches afterwards.
type PrivacyCheck struct {
	AllowPII bool
}

func NewPrivacyCheck(allowPII bool) *PrivacyCheck {
	return &PrivacyCheck{AllowPII: allowPII}
}

func (c *PrivacyCheck) Name() string { return "privacy" }

func (c *PrivacyCheck) Evaluate(query, response string) *Rejection {
	if c.AllowPII {
		return nil
	}
	for _, p := range piiPatterns {
		// Email addresses are redacted rather than rejected: they are the
		// least sensitive class and rejection would block benign contact info.
		if p.name == "email" {
			continue
		}
		if p.re.MatchString(response) {
			return &Rejection{
				Stage:  c.Name(),
				Code:   ReasonPrivacy,
				Detail: fmt.Sprintf("matched %s pattern", p.name),
			}
		}
	}
	return nil
}
