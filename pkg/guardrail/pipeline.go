package guardrail

// Pipeline runs the checks in a fixed order with short-circuit on the first
// rejection, then sanitizes whatever passed. Everything here is pure and
// synchronous; there are no network calls to suspend or retry.
type Pipeline struct {
	checks    []Check
	sanitizer *Sanitizer
}

type Options struct {
	StrictMode     bool
	AllowPII       bool
	MaxOutputChars int
}

func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{
		checks: []Check{
			NewSafetyCheck(opts.StrictMode),
			NewPrivacyCheck(opts.AllowPII),
			NewQualityCheck(),
			NewRelevanceCheck(),
		},
		sanitizer: NewSanitizer(opts.MaxOutputChars),
	}
}

// Validate evaluates the response against all checks. On pass it returns the
// sanitized final text; on rejection it returns the first failing check's
// verdict. Rerunning on the same input yields the same outcome.
func (p *Pipeline) Validate(query, response string) (string, *Rejection) {
	for _, check := range p.checks {
		if rejection := check.Evaluate(query, response); rejection != nil {
			return "", rejection
		}
	}
	return p.sanitizer.Sanitize(response), nil
}

// ValidateQuery applies the safety check to the incoming query itself, so an
// unsafe question is refused before any generation happens.
func (p *Pipeline) ValidateQuery(query string) *Rejection {
	for _, check := range p.checks {
		if check.Name() != "safety" {
			continue
		}
		if rejection := check.Evaluate("", query); rejection != nil {
			return rejection
		}
	}
	return nil
}
